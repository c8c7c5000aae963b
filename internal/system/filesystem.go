package system

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// FileSystem handles file system operations
type FileSystem struct{}

// NewFileSystem creates a new FileSystem instance
func NewFileSystem() *FileSystem {
	return &FileSystem{}
}

// EnsureDirectory creates a directory with the given permissions.
// If the directory already exists, it does nothing.
func (fs *FileSystem) EnsureDirectory(path string, perms os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists but is not a directory", path)
		}
		// Directory exists, nothing to do
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check directory %s: %w", path, err)
	}

	if err := os.MkdirAll(path, perms); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// FileExists checks if a file exists
func (fs *FileSystem) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check if file exists %s: %w", path, err)
}

// DirectoryExists checks if a directory exists
func (fs *FileSystem) DirectoryExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check if directory exists %s: %w", path, err)
}

// RemoveDirectory removes a directory and all its contents.
// Safety checks are in place to prevent accidental deletion of critical directories.
func (fs *FileSystem) RemoveDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("refusing to remove empty path")
	}

	// Ensure path is absolute
	if !filepath.IsAbs(path) {
		return fmt.Errorf("refusing to remove relative path: %s (must be absolute)", path)
	}

	// Block critical system directories
	criticalPaths := []string{
		"/",
		"/bin",
		"/boot",
		"/dev",
		"/etc",
		"/home",
		"/lib",
		"/lib64",
		"/proc",
		"/root",
		"/run",
		"/sbin",
		"/sys",
		"/usr",
		"/var",
	}

	for _, critical := range criticalPaths {
		if path == critical {
			return fmt.Errorf("refusing to remove critical system path: %s", path)
		}
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove directory %s: %w", path, err)
	}
	return nil
}

// CopyFile copies a file from src to dst, creating or truncating dst
// with the given permissions.
func (fs *FileSystem) CopyFile(src, dst string, perms os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perms)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close destination file %s: %w", dst, err)
	}

	// The destination may have pre-existed with different permissions;
	// OpenFile only applies perms on creation.
	if err := os.Chmod(dst, perms); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", dst, err)
	}

	return nil
}

// GetFileSize returns the size of a file in bytes
func (fs *FileSystem) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	return info.Size(), nil
}

// IsMount checks if a path is a mount point
func (fs *FileSystem) IsMount(path string) (bool, error) {
	pathStat, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	parentPath := filepath.Dir(path)
	parentStat, err := os.Stat(parentPath)
	if err != nil {
		return false, fmt.Errorf("failed to stat parent %s: %w", parentPath, err)
	}

	// Use type assertions with checks to prevent panic
	pathSys := pathStat.Sys()
	if pathSys == nil {
		return false, fmt.Errorf("failed to get system info for %s", path)
	}
	pathStatT, ok := pathSys.(*syscall.Stat_t)
	if !ok {
		return false, fmt.Errorf("failed to get stat info for %s: not a Unix filesystem", path)
	}

	parentSys := parentStat.Sys()
	if parentSys == nil {
		return false, fmt.Errorf("failed to get system info for %s", parentPath)
	}
	parentStatT, ok := parentSys.(*syscall.Stat_t)
	if !ok {
		return false, fmt.Errorf("failed to get stat info for %s: not a Unix filesystem", parentPath)
	}

	// If the device IDs are different, it's a mount point
	return pathStatT.Dev != parentStatT.Dev, nil
}

// ListDirectory lists all entries in a directory
func (fs *FileSystem) ListDirectory(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names, nil
}

// IsCriticalPath reports whether the path sits inside a directory the tool
// must never delete. Used as a guard before workspace removal.
func IsCriticalPath(path string) bool {
	cleaned := filepath.Clean(path)
	return cleaned == "/" || strings.Count(cleaned, "/") < 2
}

// Package iso reads ISO 9660 images without mounting them. It backs the
// inspect command and serves as the unprivileged fallback when loop mounting
// the base image is not possible.
package iso

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kdomanski/iso9660"
)

// Info summarizes the contents of an ISO image.
type Info struct {
	FileCount int
	TotalSize int64
}

// Inspect opens an ISO image and reports the number of regular files it
// contains and their total uncompressed size.
func Inspect(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ISO %s: %w", path, err)
	}
	defer file.Close()

	img, err := iso9660.OpenImage(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read ISO %s: %w", path, err)
	}

	root, err := img.RootDir()
	if err != nil {
		return nil, fmt.Errorf("failed to read ISO root directory: %w", err)
	}

	info := &Info{}
	err = walk(root, func(f *iso9660.File) error {
		if !f.IsDir() {
			info.FileCount++
			info.TotalSize += f.Size()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return info, nil
}

// Extract unpacks the full tree of an ISO image into destDir. Directory
// structure is recreated; file permissions inside the image are not
// representable in plain ISO 9660, so files come out mode 0644.
func Extract(path, destDir string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ISO %s: %w", path, err)
	}
	defer file.Close()

	img, err := iso9660.OpenImage(file)
	if err != nil {
		return fmt.Errorf("failed to read ISO %s: %w", path, err)
	}

	root, err := img.RootDir()
	if err != nil {
		return fmt.Errorf("failed to read ISO root directory: %w", err)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create extraction directory %s: %w", destDir, err)
	}

	return extractDir(root, destDir)
}

func extractDir(dir *iso9660.File, destDir string) error {
	children, err := dir.GetChildren()
	if err != nil {
		return fmt.Errorf("failed to list ISO directory: %w", err)
	}

	for _, child := range children {
		target := filepath.Join(destDir, child.Name())

		if child.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			if err := extractDir(child, target); err != nil {
				return err
			}
			continue
		}

		if err := extractFile(child, target); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(f *iso9660.File, target string) error {
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}

	if _, err := io.Copy(out, f.Reader()); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", target, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target, err)
	}
	return nil
}

func walk(f *iso9660.File, fn func(*iso9660.File) error) error {
	if err := fn(f); err != nil {
		return err
	}
	if !f.IsDir() {
		return nil
	}

	children, err := f.GetChildren()
	if err != nil {
		return fmt.Errorf("failed to list ISO directory: %w", err)
	}
	for _, child := range children {
		if err := walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}

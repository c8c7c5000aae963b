package build

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rgclegg/iso-remaster/internal/system"
	"github.com/rgclegg/iso-remaster/internal/ui"
)

// Injector customizes the unpacked root filesystem: it copies host files in
// and installs packages inside it.
type Injector struct {
	runner  system.CommandRunner
	mounter *system.Mounter
	fs      *system.FileSystem
	out     *ui.UI
}

// NewInjector creates an Injector on top of the given runner.
func NewInjector(runner system.CommandRunner, mounter *system.Mounter, out *ui.UI) *Injector {
	return &Injector{
		runner:  runner,
		mounter: mounter,
		fs:      system.NewFileSystem(),
		out:     out,
	}
}

// CopyFiles copies every regular file under source into dest inside the
// unpacked filesystem, preserving relative paths and marking each file
// executable. A missing source directory is reported and skipped, not fatal.
// Returns the number of files copied.
func (i *Injector) CopyFiles(source, squashRoot, dest string) (int, error) {
	exists, err := i.fs.DirectoryExists(source)
	if err != nil {
		return 0, err
	}
	if !exists {
		i.out.Warningf("Source directory %s does not exist, skipping file injection", source)
		return 0, nil
	}

	destRoot := filepath.Join(squashRoot, strings.TrimPrefix(dest, "/"))
	if err := i.fs.EnsureDirectory(destRoot, 0755); err != nil {
		return 0, err
	}

	copied := 0
	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}

		target := filepath.Join(destRoot, rel)
		if err := i.fs.EnsureDirectory(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := i.fs.CopyFile(path, target, 0755); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("failed to inject files from %s: %w", source, err)
	}

	return copied, nil
}

// InstallPackages installs the given packages inside the unpacked filesystem
// using whichever package manager its marker files identify. The host /run is
// bind-mounted into the filesystem for the duration so name resolution works
// during the install, and is torn down again whatever the outcome.
func (i *Injector) InstallPackages(squashRoot string, packages []string) error {
	if len(packages) == 0 {
		return nil
	}

	installer, err := DetectPackageManager(squashRoot)
	if err != nil {
		return err
	}
	i.out.Infof("Detected package manager: %s", installer.Name())

	runDir := filepath.Join(squashRoot, "run")
	if err := i.fs.EnsureDirectory(runDir, 0755); err != nil {
		return err
	}
	if err := i.mounter.BindMount("/run", runDir); err != nil {
		return err
	}
	defer func() {
		if err := i.mounter.Unmount(runDir); err != nil {
			i.out.Warningf("Failed to unmount %s: %v", runDir, err)
		}
	}()

	i.out.Infof("Installing packages: %s", strings.Join(packages, " "))
	return installer.Install(i.runner, squashRoot, packages)
}

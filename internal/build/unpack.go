package build

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/rgclegg/iso-remaster/internal/config"
	"github.com/rgclegg/iso-remaster/internal/iso"
	"github.com/rgclegg/iso-remaster/internal/system"
	"github.com/rgclegg/iso-remaster/internal/ui"
)

const (
	// squashfsRelPath is where Ubuntu live images keep the compressed root
	// filesystem, relative to the ISO root.
	squashfsRelPath = "casper/filesystem.squashfs"

	// ubuntuMarker is a disk-marker file present on the ISO that must not be
	// mirrored into the new tree.
	ubuntuMarker = "ubuntu"
)

// Unpacker materializes the contents of the base ISO into the workspace.
type Unpacker struct {
	runner     system.CommandRunner
	mounter    *system.Mounter
	fs         *system.FileSystem
	downloader *system.Downloader
	out        *ui.UI
}

// NewUnpacker creates an Unpacker on top of the given runner.
func NewUnpacker(runner system.CommandRunner, mounter *system.Mounter, out *ui.UI) *Unpacker {
	return &Unpacker{
		runner:     runner,
		mounter:    mounter,
		fs:         system.NewFileSystem(),
		downloader: system.NewDownloader(runner),
		out:        out,
	}
}

// EnsureInputISO returns the path of the base ISO to build from, downloading
// the default release image when none was configured. The download is skipped
// when the file is already present from an earlier run.
func (u *Unpacker) EnsureInputISO(cfg *config.BuildConfig) (string, error) {
	if cfg.InputISO != "" {
		return cfg.InputISO, nil
	}

	u.out.Infof("No input ISO given, using default: %s", config.DefaultISOURL)
	ok, err := u.out.PromptYesNo("Download the default base image? (several hundred MB)", true)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("download declined, pass -i to use a local ISO")
	}

	downloaded, err := u.downloader.Fetch(config.DefaultISOURL, config.DefaultDownloadPath)
	if err != nil {
		return "", err
	}
	if downloaded {
		u.out.Successf("Downloaded base image to %s", config.DefaultDownloadPath)
	} else {
		u.out.Infof("Reusing previously downloaded image at %s", config.DefaultDownloadPath)
	}

	return config.DefaultDownloadPath, nil
}

// Unpack mounts the base ISO, mirrors its tree into the new ISO directory,
// and decompresses the root filesystem into the squashfs working directory.
func (u *Unpacker) Unpack(ws *Workspace, isoPath string) error {
	exists, err := u.fs.FileExists(isoPath)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("input ISO does not exist: %s", isoPath)
	}

	if err := u.mounter.MountLoop(isoPath, ws.MountDir()); err != nil {
		// Loop mounting needs privileges. Fall back to extracting the
		// image in-process, which yields the same tree.
		u.out.Warningf("Loop mount failed: %v", err)
		u.out.Info("Falling back to in-process ISO extraction")
		if err := iso.Extract(isoPath, ws.MountDir()); err != nil {
			return fmt.Errorf("failed to extract base ISO: %w", err)
		}
	} else {
		ws.RegisterMount(ws.MountDir())
	}

	if err := u.mirrorTree(ws.MountDir(), ws.NewFSDir()); err != nil {
		return err
	}

	return u.unpackRootFS(ws.MountDir(), ws.SquashfsDir())
}

// mirrorTree copies the base ISO tree into the new ISO directory, leaving out
// the compressed root filesystem and the ubuntu marker.
func (u *Unpacker) mirrorTree(mountDir, newfsDir string) error {
	u.out.Infof("Mirroring ISO tree into %s", newfsDir)

	args := []string{
		"-a",
		"--exclude", "/" + squashfsRelPath,
		"--exclude", "/" + ubuntuMarker,
		mountDir + "/",
		newfsDir,
	}
	output, err := u.runner.Run("rsync", args...)
	if err != nil && !vanishedFiles(err) {
		return fmt.Errorf("failed to mirror ISO tree: %w\nOutput: %s", err, output)
	}
	return nil
}

// unpackRootFS decompresses the squashfs image into the working directory,
// overwriting whatever is there.
func (u *Unpacker) unpackRootFS(mountDir, squashfsDir string) error {
	image := filepath.Join(mountDir, squashfsRelPath)
	u.out.Infof("Unpacking root filesystem from %s", image)

	output, err := u.runner.Run("unsquashfs", "-f", "-d", squashfsDir, image)
	if err != nil {
		return fmt.Errorf("failed to unpack root filesystem: %w\nOutput: %s", err, output)
	}
	return nil
}

// vanishedFiles reports whether an rsync error is exit code 24, files
// vanishing mid-transfer. That is expected when mirroring a live tree and is
// not a failure.
func vanishedFiles(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 24
}

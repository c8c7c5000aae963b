package build

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rgclegg/iso-remaster/internal/system"
	"github.com/rgclegg/iso-remaster/internal/ui"
)

// isoVolumeLabel is the volume identifier stamped on the produced image.
const isoVolumeLabel = "Custom Linux ISO"

// Packer finalizes the new ISO tree and authors the output image.
type Packer struct {
	runner system.CommandRunner
	fs     *system.FileSystem
	out    *ui.UI
}

// NewPacker creates a Packer on top of the given runner.
func NewPacker(runner system.CommandRunner, out *ui.UI) *Packer {
	return &Packer{
		runner: runner,
		fs:     system.NewFileSystem(),
		out:    out,
	}
}

// RepackRootFS compresses the modified root filesystem back into the new ISO
// tree, replacing any earlier artifact.
func (p *Packer) RepackRootFS(squashfsDir, newfsDir string) error {
	target := filepath.Join(newfsDir, squashfsRelPath)
	if err := p.fs.EnsureDirectory(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale root filesystem artifact: %w", err)
	}

	p.out.Infof("Compressing root filesystem into %s", target)
	output, err := p.runner.Run("mksquashfs", squashfsDir, target, "-noappend", "-b", "1048576")
	if err != nil {
		return fmt.Errorf("failed to compress root filesystem: %w\nOutput: %s", err, output)
	}
	return nil
}

// WriteISO authors a bootable ISO from the assembled tree with the fixed
// bootloader parameter set the base image uses.
func (p *Packer) WriteISO(newfsDir, outputPath string) error {
	p.out.Infof("Authoring ISO at %s", outputPath)

	args := []string{
		"-r",
		"-V", isoVolumeLabel,
		"-cache-inodes",
		"-J", "-l",
		"-b", "isolinux/isolinux.bin",
		"-c", "isolinux/boot.cat",
		"-no-emul-boot",
		"-boot-load-size", "4",
		"-boot-info-table",
		"-input-charset", "utf-8",
		"-o", outputPath,
		newfsDir,
	}
	output, err := p.runner.Run("genisoimage", args...)
	if err != nil {
		return fmt.Errorf("failed to author ISO: %w\nOutput: %s", err, output)
	}
	return nil
}

// WriteChecksum writes a sha256 sum file next to the output image.
func (p *Packer) WriteChecksum(outputPath string) error {
	file, err := os.Open(outputPath)
	if err != nil {
		return fmt.Errorf("failed to open output ISO for checksum: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return fmt.Errorf("failed to checksum output ISO: %w", err)
	}

	checksumPath := outputPath + ".sha256"
	line := fmt.Sprintf("%x  %s\n", h.Sum(nil), filepath.Base(outputPath))
	if err := os.WriteFile(checksumPath, []byte(line), 0644); err != nil {
		return fmt.Errorf("failed to write checksum file %s: %w", checksumPath, err)
	}
	return nil
}

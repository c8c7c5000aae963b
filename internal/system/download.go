package system

import (
	"fmt"
	"os"
)

// Downloader fetches remote files with wget.
type Downloader struct {
	runner CommandRunner
}

// NewDownloader creates a new Downloader using the given command runner.
func NewDownloader(runner CommandRunner) *Downloader {
	return &Downloader{runner: runner}
}

// Fetch downloads url to dest. An already existing destination file is kept
// as-is; delete it to force a fresh download.
func (d *Downloader) Fetch(url, dest string) (downloaded bool, err error) {
	if _, err := os.Stat(dest); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check download target %s: %w", dest, err)
	}

	output, err := d.runner.Run("wget", "-O", dest, url)
	if err != nil {
		// wget leaves a zero-length file behind on failure
		os.Remove(dest)
		return false, fmt.Errorf("failed to download %s: %w\nOutput: %s", url, err, output)
	}
	return true, nil
}

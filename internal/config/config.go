// Package config resolves the build configuration for an ISO remaster run:
// flag values, defaults, and the package specification. A resolved BuildConfig
// is treated as immutable by the pipeline stages it is handed to.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// Defaults matching the original remaster tool behavior.
const (
	// DefaultDest is the path inside the target filesystem that injected
	// files land in when no destination is given.
	DefaultDest = "/usr/sbin"

	// DefaultISOURL is the base image fetched when no input ISO is given.
	DefaultISOURL = "https://releases.ubuntu.com/20.04.1/ubuntu-20.04.1-live-server-amd64.iso"

	// DefaultDownloadPath is where the default base image is materialized.
	DefaultDownloadPath = "/tmp/ubuntu-20.04.1-live-server-amd64.iso"

	// outputTimestampLayout produces the 12-digit timestamp embedded in the
	// default output path.
	outputTimestampLayout = "200601021504"
)

// BuildConfig holds everything a build run needs. Resolve validates and
// defaults it; afterwards the stages only read it.
type BuildConfig struct {
	// Dest is the destination path inside the unpacked root filesystem for
	// injected files.
	Dest string

	// Source is the host directory whose regular files are injected.
	// Empty means no file injection.
	Source string

	// Packages is the list of packages to install inside the unpacked
	// filesystem. Empty after resolution when PackageFile is set.
	Packages []string

	// PackageFile is a newline-delimited package list file. Takes precedence
	// over Packages.
	PackageFile string

	// InputISO is the base image path. Empty means download the default.
	InputISO string

	// OutputISO is where the final image is written.
	OutputISO string

	// NonInteractive suppresses confirmation prompts.
	NonInteractive bool

	// KeepWorkspace skips workspace removal on exit, for debugging.
	KeepWorkspace bool
}

// Resolve applies defaults and enforces the precedence rules. If both a
// package file and a package list were supplied, the file wins and the list
// is discarded.
func (c *BuildConfig) Resolve(now time.Time) error {
	if c.Dest == "" {
		c.Dest = DefaultDest
	}

	if c.PackageFile != "" {
		c.Packages = nil
	}

	if c.OutputISO == "" {
		c.OutputISO = DefaultOutputPath(now)
	}

	return nil
}

// WantsPackages reports whether any package installation was requested.
func (c *BuildConfig) WantsPackages() bool {
	return c.PackageFile != "" || len(c.Packages) > 0
}

// DefaultOutputPath returns the timestamped default output ISO path.
func DefaultOutputPath(now time.Time) string {
	return fmt.Sprintf("/tmp/custom-image-%s.iso", now.Format(outputTimestampLayout))
}

// ParsePackageList splits a quote/space-delimited package specification,
// honoring shell quoting so names with spaces survive intact.
func ParsePackageList(list string) ([]string, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}

	packages, err := shellquote.Split(list)
	if err != nil {
		return nil, fmt.Errorf("invalid package list %q: %w", list, err)
	}
	return packages, nil
}

// ReadPackageFile reads a newline-delimited package file. Blank lines and
// comments are skipped; literal version pins of the form name=version are
// preserved, and no glob expansion takes place.
func ReadPackageFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open package file %s: %w", path, err)
	}
	defer file.Close()

	var packages []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		packages = append(packages, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read package file %s: %w", path, err)
	}

	return packages, nil
}

package build

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rgclegg/iso-remaster/internal/config"
	"github.com/rgclegg/iso-remaster/internal/system"
	"github.com/rgclegg/iso-remaster/internal/ui"
)

// commandIndex returns the position of the first invocation of name, or -1.
func commandIndex(commands [][]string, name string) int {
	for i, cmd := range commands {
		if cmd[0] == name {
			return i
		}
	}
	return -1
}

func TestPipelineRun(t *testing.T) {
	overrideRequiredTools(t, []string{"sh"})

	isoPath := writeFixtureISO(t, map[string]string{
		"readme.txt": "base image",
	})

	source := t.TempDir()
	if err := os.WriteFile(filepath.Join(source, "provision.sh"), []byte("#!/bin/sh\n"), 0644); err != nil {
		t.Fatal(err)
	}

	wsRoot := filepath.Join(t.TempDir(), "ws")
	output := filepath.Join(t.TempDir(), "custom.iso")

	runner := system.NewMockRunner()
	runner.Handler = func(name string, args []string) (string, error) {
		switch name {
		case "mount":
			// Refuse the privileged loop mount so the run exercises the
			// in-process extraction fallback. Bind mounts succeed.
			if args[0] == "-o" {
				return "", errors.New("operation not permitted")
			}
			return "", nil
		case "unsquashfs":
			// A real unsquashfs would materialize the distro tree.
			marker := filepath.Join(wsRoot, "squashfs", "etc", "debian_version")
			if err := os.MkdirAll(filepath.Dir(marker), 0755); err != nil {
				return "", err
			}
			return "", os.WriteFile(marker, []byte("20.04\n"), 0644)
		case "genisoimage":
			// A real genisoimage would author the image.
			return "", os.WriteFile(output, []byte("iso payload"), 0644)
		default:
			return "", nil
		}
	}

	out := ui.NewWithWriter(&bytes.Buffer{})
	out.SetNonInteractive(true)

	cfg := &config.BuildConfig{
		Dest:           "/usr/sbin",
		Source:         source,
		Packages:       []string{"curl", "vim"},
		InputISO:       isoPath,
		OutputISO:      output,
		NonInteractive: true,
		KeepWorkspace:  true,
	}

	p := NewPipeline(cfg, out, runner)
	p.WorkspaceRoot = wsRoot
	if err := p.Run(); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	// The output image and its checksum must exist.
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output ISO missing: %v", err)
	}
	if _, err := os.Stat(output + ".sha256"); err != nil {
		t.Errorf("checksum file missing: %v", err)
	}

	// Injected files land under the destination inside the root filesystem,
	// marked executable.
	injected := filepath.Join(wsRoot, "squashfs", "usr/sbin", "provision.sh")
	info, err := os.Stat(injected)
	if err != nil {
		t.Fatalf("injected file missing: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("injected file mode = %v, want 0755", info.Mode().Perm())
	}

	// The requested packages end up on the install command line.
	var install []string
	for _, cmd := range runner.Commands {
		if cmd[0] == "chroot" && len(cmd) > 3 && cmd[3] == "install" {
			install = cmd
		}
	}
	if install == nil {
		t.Fatal("no package install command was run")
	}
	for _, pkg := range []string{"curl", "vim"} {
		found := false
		for _, arg := range install {
			if arg == pkg {
				found = true
			}
		}
		if !found {
			t.Errorf("package %s missing from install command %v", pkg, install)
		}
	}

	// Stages run in order: mirror, unpack, install, repack, author.
	order := []string{"rsync", "unsquashfs", "chroot", "mksquashfs", "genisoimage"}
	last := -1
	for _, name := range order {
		idx := commandIndex(runner.Commands, name)
		if idx < 0 {
			t.Fatalf("%s was never run", name)
		}
		if idx < last {
			t.Errorf("%s ran out of order", name)
		}
		last = idx
	}
}

func TestPipelineAbortsOnRepackFailure(t *testing.T) {
	overrideRequiredTools(t, []string{"sh"})

	isoPath := writeFixtureISO(t, map[string]string{
		"readme.txt": "base image",
	})

	runner := system.NewMockRunner()
	runner.Handler = func(name string, args []string) (string, error) {
		switch name {
		case "mount":
			return "", errors.New("operation not permitted")
		case "mksquashfs":
			return "", errors.New("out of space")
		default:
			return "", nil
		}
	}

	out := ui.NewWithWriter(&bytes.Buffer{})
	out.SetNonInteractive(true)

	cfg := &config.BuildConfig{
		Dest:           "/usr/sbin",
		InputISO:       isoPath,
		OutputISO:      filepath.Join(t.TempDir(), "custom.iso"),
		NonInteractive: true,
	}

	p := NewPipeline(cfg, out, runner)
	p.WorkspaceRoot = filepath.Join(t.TempDir(), "ws")
	if err := p.Run(); err == nil {
		t.Fatal("Run() error = nil, want repack failure")
	}

	if got := runner.Calls("genisoimage"); got != 0 {
		t.Errorf("genisoimage run %d times after a failed repack, want 0", got)
	}

	// The workspace is torn down on the failure path.
	if _, err := os.Stat(p.WorkspaceRoot); !os.IsNotExist(err) {
		t.Error("workspace still exists after a failed run")
	}
}

func TestPipelineFailsOnBadPackageFile(t *testing.T) {
	overrideRequiredTools(t, []string{"sh"})

	runner := system.NewMockRunner()
	out := ui.NewWithWriter(&bytes.Buffer{})
	out.SetNonInteractive(true)

	cfg := &config.BuildConfig{
		Dest:           "/usr/sbin",
		PackageFile:    filepath.Join(t.TempDir(), "absent.list"),
		InputISO:       "/isos/base.iso",
		OutputISO:      filepath.Join(t.TempDir(), "custom.iso"),
		NonInteractive: true,
	}

	p := NewPipeline(cfg, out, runner)
	p.WorkspaceRoot = filepath.Join(t.TempDir(), "ws")
	if err := p.Run(); err == nil {
		t.Fatal("Run() error = nil, want package file failure")
	}

	// The bad package file fails the run before any tool is invoked.
	if len(runner.Commands) != 0 {
		t.Errorf("expected no commands, got %v", runner.Commands)
	}
}

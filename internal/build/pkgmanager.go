package build

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rgclegg/iso-remaster/internal/system"
)

// Installer installs packages inside an unpacked root filesystem through
// chroot. One implementation exists per supported package manager.
type Installer interface {
	Name() string
	Install(runner system.CommandRunner, root string, packages []string) error
}

type managerProbe struct {
	marker    string
	installer Installer
}

// packageManagerProbes returns the detection table: marker files checked
// inside the unpacked filesystem, in fixed order. First match wins.
func packageManagerProbes() []managerProbe {
	return []managerProbe{
		{"etc/debian_version", aptInstaller{}},
		{"etc/redhat-release", dnfInstaller{}},
		{"etc/alpine-release", apkInstaller{}},
		{"etc/arch-release", pacmanInstaller{}},
	}
}

// DetectPackageManager probes the unpacked filesystem for distro marker
// files and returns the matching installer.
func DetectPackageManager(root string) (Installer, error) {
	for _, probe := range packageManagerProbes() {
		if _, err := os.Stat(filepath.Join(root, probe.marker)); err == nil {
			return probe.installer, nil
		}
	}
	return nil, fmt.Errorf("no supported package manager detected in %s", root)
}

type aptInstaller struct{}

func (aptInstaller) Name() string { return "apt" }

func (aptInstaller) Install(runner system.CommandRunner, root string, packages []string) error {
	env := []string{"DEBIAN_FRONTEND=noninteractive"}

	if output, err := runner.RunWithEnv(env, "chroot", root, "apt-get", "update"); err != nil {
		return fmt.Errorf("apt-get update failed: %w\nOutput: %s", err, output)
	}

	args := append([]string{root, "apt-get", "install", "-y"}, packages...)
	if output, err := runner.RunWithEnv(env, "chroot", args...); err != nil {
		return fmt.Errorf("apt-get install failed: %w\nOutput: %s", err, output)
	}
	return nil
}

type dnfInstaller struct{}

func (dnfInstaller) Name() string { return "dnf" }

func (dnfInstaller) Install(runner system.CommandRunner, root string, packages []string) error {
	args := append([]string{root, "dnf", "install", "-y"}, packages...)
	if output, err := runner.Run("chroot", args...); err != nil {
		return fmt.Errorf("dnf install failed: %w\nOutput: %s", err, output)
	}
	return nil
}

type apkInstaller struct{}

func (apkInstaller) Name() string { return "apk" }

func (apkInstaller) Install(runner system.CommandRunner, root string, packages []string) error {
	args := append([]string{root, "apk", "add"}, packages...)
	if output, err := runner.Run("chroot", args...); err != nil {
		return fmt.Errorf("apk add failed: %w\nOutput: %s", err, output)
	}
	return nil
}

type pacmanInstaller struct{}

func (pacmanInstaller) Name() string { return "pacman" }

func (pacmanInstaller) Install(runner system.CommandRunner, root string, packages []string) error {
	args := append([]string{root, "pacman", "-S", "--noconfirm"}, packages...)
	if output, err := runner.Run("chroot", args...); err != nil {
		return fmt.Errorf("pacman install failed: %w\nOutput: %s", err, output)
	}
	return nil
}

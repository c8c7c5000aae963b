package system

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Mounter wraps the mount and umount utilities for loopback and bind mounts.
type Mounter struct {
	runner CommandRunner
}

// NewMounter creates a new Mounter using the given command runner.
func NewMounter(runner CommandRunner) *Mounter {
	return &Mounter{runner: runner}
}

// MountLoop loop-mounts an image file read-only at the target directory.
func (m *Mounter) MountLoop(image, target string) error {
	output, err := m.runner.Run("mount", "-o", "loop,ro", image, target)
	if err != nil {
		return fmt.Errorf("failed to loop mount %s at %s: %w\nOutput: %s", image, target, err, output)
	}
	return nil
}

// BindMount bind-mounts a host directory at the target directory.
func (m *Mounter) BindMount(source, target string) error {
	output, err := m.runner.Run("mount", "--bind", source, target)
	if err != nil {
		return fmt.Errorf("failed to bind mount %s at %s: %w\nOutput: %s", source, target, err, output)
	}
	return nil
}

// Unmount unmounts the target, escalating from a plain umount to a lazy and
// finally a forced one. The last error is returned if all attempts fail.
func (m *Mounter) Unmount(target string) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		switch attempt {
		case 0:
			_, err = m.runner.Run("umount", target)
		case 1:
			_, err = m.runner.Run("umount", "-l", target)
		default:
			_, err = m.runner.Run("umount", "-f", target)
		}
		if err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("failed to unmount %s after all attempts: %w", target, err)
}

// MountsUnder returns all mount points below the given path, ordered so that
// the deepest mounts come first. They must be unmounted in that order.
func MountsUnder(path string) ([]string, error) {
	data, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return nil, fmt.Errorf("failed to read /proc/mounts: %w", err)
	}

	var mounts []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		mountPoint := fields[1]
		if mountPoint == path || strings.HasPrefix(mountPoint, path+"/") {
			mounts = append(mounts, mountPoint)
		}
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i]) > len(mounts[j])
	})

	return mounts, nil
}

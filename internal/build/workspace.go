// Package build implements the ISO remaster pipeline: workspace lifecycle,
// base image unpacking, content injection, and image packing. Stages run
// strictly in order and every external tool goes through a CommandRunner so
// the orchestration is testable without touching the host.
package build

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/rgclegg/iso-remaster/internal/system"
	"github.com/rgclegg/iso-remaster/internal/ui"
)

// DefaultWorkspaceRoot is the fixed workspace location. Two concurrent runs
// on one host would collide here; single-instance usage is assumed.
const DefaultWorkspaceRoot = "/tmp/iso-remaster"

// Workspace is the temporary directory tree a build runs in: the loop-mounted
// base image, the unpacked root filesystem, and the assembled new ISO tree.
type Workspace struct {
	root    string
	fs      *system.FileSystem
	mounter *system.Mounter
	out     *ui.UI
	keep    bool

	mu     sync.Mutex
	mounts []string
}

// NewWorkspace creates a Workspace rooted at the given path.
func NewWorkspace(root string, mounter *system.Mounter, out *ui.UI) *Workspace {
	return &Workspace{
		root:    root,
		fs:      system.NewFileSystem(),
		mounter: mounter,
		out:     out,
	}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// MountDir returns the directory the base ISO is mounted or extracted at.
func (w *Workspace) MountDir() string { return filepath.Join(w.root, "mount") }

// SquashfsDir returns the directory holding the unpacked root filesystem.
func (w *Workspace) SquashfsDir() string { return filepath.Join(w.root, "squashfs") }

// NewFSDir returns the directory the new ISO tree is assembled in.
func (w *Workspace) NewFSDir() string { return filepath.Join(w.root, "newfs") }

// SetKeep disables workspace removal during Cleanup, for debugging.
func (w *Workspace) SetKeep(keep bool) { w.keep = keep }

// Create makes the workspace directory tree.
func (w *Workspace) Create() error {
	for _, dir := range []string{w.MountDir(), w.SquashfsDir(), w.NewFSDir()} {
		if err := w.fs.EnsureDirectory(dir, 0755); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
	}
	return nil
}

// RegisterMount records a mount point for teardown during Cleanup.
// Mounts are released in reverse registration order.
func (w *Workspace) RegisterMount(target string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mounts = append(w.mounts, target)
}

// Cleanup unmounts everything below the workspace and removes it. It is
// idempotent: calling it again, or on a workspace that no longer exists, is
// a no-op. Unmount failures are reported but never fatal.
func (w *Workspace) Cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(w.root); os.IsNotExist(err) {
		w.mounts = nil
		return
	}

	for i := len(w.mounts) - 1; i >= 0; i-- {
		if err := w.mounter.Unmount(w.mounts[i]); err != nil {
			w.out.Warningf("Failed to unmount %s: %v", w.mounts[i], err)
		}
	}
	w.mounts = nil

	// Sweep for stragglers, e.g. a bind mount left behind by an interrupted
	// install. Deepest mounts first.
	leftover, err := system.MountsUnder(w.root)
	if err != nil {
		w.out.Warningf("Failed to scan for leftover mounts: %v", err)
	}
	for _, target := range leftover {
		if err := w.mounter.Unmount(target); err != nil {
			w.out.Warningf("Failed to unmount %s: %v", target, err)
		}
	}

	if w.keep {
		w.out.Infof("Keeping workspace at %s", w.root)
		return
	}

	if system.IsCriticalPath(w.root) {
		w.out.Errorf("Refusing to remove workspace at critical path %s", w.root)
		return
	}

	if err := w.fs.RemoveDirectory(w.root); err != nil {
		w.out.Warningf("Failed to remove workspace: %v", err)
	}
}

// HandleSignals installs a handler that tears the workspace down when a
// termination signal arrives, then exits. The returned stop function
// uninstalls the handler; call it once the pipeline owns cleanup again.
func (w *Workspace) HandleSignals() (stop func()) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGABRT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			w.out.Warningf("Received %s, cleaning up", sig)
			w.Cleanup()
			os.Exit(1)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

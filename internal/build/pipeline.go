package build

import (
	"fmt"

	"github.com/rgclegg/iso-remaster/internal/config"
	"github.com/rgclegg/iso-remaster/internal/system"
	"github.com/rgclegg/iso-remaster/internal/ui"
)

// Pipeline runs the five build stages in order: preflight, workspace setup,
// base image unpacking, content injection, and image packing.
type Pipeline struct {
	cfg    *config.BuildConfig
	out    *ui.UI
	runner system.CommandRunner
	fs     *system.FileSystem

	// WorkspaceRoot is overridable for tests; everything else derives from it.
	WorkspaceRoot string
}

// NewPipeline wires up a Pipeline for the given resolved configuration.
func NewPipeline(cfg *config.BuildConfig, out *ui.UI, runner system.CommandRunner) *Pipeline {
	return &Pipeline{
		cfg:           cfg,
		out:           out,
		runner:        runner,
		fs:            system.NewFileSystem(),
		WorkspaceRoot: DefaultWorkspaceRoot,
	}
}

// Run executes the build. The workspace is cleaned up on every exit path,
// including termination signals.
func (p *Pipeline) Run() error {
	p.out.Header("ISO Remaster")

	p.out.Step("Checking prerequisites")
	if err := CheckRequiredTools(p.out); err != nil {
		return err
	}

	// Resolve the package set up front so a bad package file fails the run
	// before any heavy lifting.
	packages, err := p.resolvePackages()
	if err != nil {
		return err
	}

	if err := p.confirmOverwrite(); err != nil {
		return err
	}

	mounter := system.NewMounter(p.runner)
	ws := NewWorkspace(p.WorkspaceRoot, mounter, p.out)
	ws.SetKeep(p.cfg.KeepWorkspace)

	p.out.Step("Preparing workspace")
	if err := ws.Create(); err != nil {
		return err
	}
	stop := ws.HandleSignals()
	defer stop()
	defer ws.Cleanup()
	p.out.Successf("Workspace ready at %s", ws.Root())

	unpacker := NewUnpacker(p.runner, mounter, p.out)

	p.out.Step("Acquiring base image")
	isoPath, err := unpacker.EnsureInputISO(p.cfg)
	if err != nil {
		return err
	}

	p.out.Step("Unpacking base image")
	if err := unpacker.Unpack(ws, isoPath); err != nil {
		return err
	}

	injector := NewInjector(p.runner, mounter, p.out)

	if p.cfg.Source != "" {
		p.out.Step("Injecting files")
		copied, err := injector.CopyFiles(p.cfg.Source, ws.SquashfsDir(), p.cfg.Dest)
		if err != nil {
			return err
		}
		if copied > 0 {
			p.out.Successf("Injected %d file(s) into %s", copied, p.cfg.Dest)
		}
	}

	if len(packages) > 0 {
		p.out.Step("Installing packages")
		if err := injector.InstallPackages(ws.SquashfsDir(), packages); err != nil {
			return err
		}
		p.out.Success("Package installation completed")
	}

	packer := NewPacker(p.runner, p.out)

	p.out.Step("Rebuilding root filesystem")
	if err := packer.RepackRootFS(ws.SquashfsDir(), ws.NewFSDir()); err != nil {
		return err
	}

	p.out.Step("Authoring ISO")
	if err := packer.WriteISO(ws.NewFSDir(), p.cfg.OutputISO); err != nil {
		return err
	}
	if err := packer.WriteChecksum(p.cfg.OutputISO); err != nil {
		return err
	}

	p.out.Successf("Custom ISO created: %s", p.cfg.OutputISO)
	return nil
}

// resolvePackages produces the final package set: the package file when one
// was given, the inline list otherwise.
func (p *Pipeline) resolvePackages() ([]string, error) {
	if p.cfg.PackageFile != "" {
		return config.ReadPackageFile(p.cfg.PackageFile)
	}
	return p.cfg.Packages, nil
}

// confirmOverwrite asks before clobbering an existing output image.
func (p *Pipeline) confirmOverwrite() error {
	exists, err := p.fs.FileExists(p.cfg.OutputISO)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	ok, err := p.out.PromptYesNo(fmt.Sprintf("Output %s already exists, overwrite?", p.cfg.OutputISO), true)
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !ok {
		return fmt.Errorf("refusing to overwrite %s", p.cfg.OutputISO)
	}
	return nil
}

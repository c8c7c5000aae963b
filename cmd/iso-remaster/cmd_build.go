package main

import (
	"fmt"
	"time"

	"github.com/rgclegg/iso-remaster/internal/build"
	"github.com/rgclegg/iso-remaster/internal/config"
	"github.com/rgclegg/iso-remaster/internal/system"
	"github.com/rgclegg/iso-remaster/internal/ui"
	"github.com/spf13/cobra"
)

var (
	destPath       string
	sourcePath     string
	packageList    string
	packageFile    string
	inputISO       string
	outputISO      string
	nonInteractive bool
	keepWorkspace  bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a customized ISO",
	Long: `Build a customized bootable ISO from a base image.

Without -i the default Ubuntu 20.04.1 live server image is downloaded.
Files from the -s directory are copied into the unpacked root filesystem
at the -d path (default /usr/sbin) and marked executable. Packages given
with -p, or listed in the -f file (which overrides -p), are installed
inside the filesystem before it is repacked.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&destPath, "dest", "d", "", "Destination path inside the target filesystem (default /usr/sbin)")
	buildCmd.Flags().StringVarP(&sourcePath, "source", "s", "", "Host directory whose files are injected")
	buildCmd.Flags().StringVarP(&packageList, "packages", "p", "", "Space-delimited package list to install")
	buildCmd.Flags().StringVarP(&packageFile, "package-file", "f", "", "Newline-delimited package list file (overrides --packages)")
	buildCmd.Flags().StringVarP(&inputISO, "iso", "i", "", "Input ISO path (default: download the base release image)")
	buildCmd.Flags().StringVarP(&outputISO, "output", "o", "", "Output ISO path (default /tmp/custom-image-<timestamp>.iso)")
	buildCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Run without confirmation prompts")
	buildCmd.Flags().BoolVar(&keepWorkspace, "keep-workspace", false, "Keep the workspace directory after the build (debugging)")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	packages, err := config.ParsePackageList(packageList)
	if err != nil {
		return err
	}

	cfg := &config.BuildConfig{
		Dest:           destPath,
		Source:         sourcePath,
		Packages:       packages,
		PackageFile:    packageFile,
		InputISO:       inputISO,
		OutputISO:      outputISO,
		NonInteractive: nonInteractive,
		KeepWorkspace:  keepWorkspace,
	}
	if err := cfg.Resolve(time.Now()); err != nil {
		return fmt.Errorf("failed to resolve configuration: %w", err)
	}

	out := ui.New()
	out.SetNonInteractive(nonInteractive)

	pipeline := build.NewPipeline(cfg, out, system.NewCommandRunner())
	return pipeline.Run()
}

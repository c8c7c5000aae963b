package main

import (
	"fmt"
	"os"

	"github.com/rgclegg/iso-remaster/pkg/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "iso-remaster",
	Short: "Build customized bootable Linux ISOs",
	Long: `iso-remaster produces a customized bootable Linux ISO from a base image.

It mounts the base ISO, unpacks its root filesystem, optionally injects
files and installs packages inside it, then repacks the filesystem and
authors a new bootable image.

Typical usage:
  iso-remaster build -s ./scripts -p "curl vim"
  iso-remaster build -i ubuntu.iso -f pkglist.txt -o /tmp/custom.iso
  iso-remaster inspect /tmp/custom.iso`,
	SilenceUsage:  true, // We handle errors manually, but silence usage on error
	SilenceErrors: true, // We format errors ourselves for consistent output
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

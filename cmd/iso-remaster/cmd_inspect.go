package main

import (
	"fmt"

	"github.com/rgclegg/iso-remaster/internal/iso"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Summarize the contents of an ISO image",
	Long: `Read an ISO 9660 image without mounting it and report the number of
files it contains and their total size. Useful for sanity-checking a
freshly built image.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	info, err := iso.Inspect(path)
	if err != nil {
		return err
	}

	fmt.Printf("Image:      %s\n", path)
	fmt.Printf("Files:      %d\n", info.FileCount)
	fmt.Printf("Total size: %d bytes\n", info.TotalSize)
	return nil
}

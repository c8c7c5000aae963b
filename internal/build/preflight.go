package build

import (
	"fmt"
	"strings"

	"github.com/rgclegg/iso-remaster/internal/system"
	"github.com/rgclegg/iso-remaster/internal/ui"
)

// requiredTools are the external utilities the pipeline shells out to.
// Their absence is fatal before any destructive action happens.
var requiredTools = []string{
	"wget",
	"genisoimage",
	"mksquashfs",
	"unsquashfs",
	"rsync",
	"mount",
	"umount",
}

// CheckRequiredTools verifies every external utility the pipeline needs is
// present in PATH, reporting each one. Missing tools are collected so the
// user sees the complete list in one pass.
func CheckRequiredTools(out *ui.UI) error {
	out.Info("Checking required utilities...")

	var missing []string
	for _, tool := range requiredTools {
		if system.CommandExists(tool) {
			out.Successf("  ✓ %s", tool)
		} else {
			out.Errorf("  ✗ %s is NOT installed", tool)
			missing = append(missing, tool)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required utilities: %s", strings.Join(missing, ", "))
	}

	out.Success("All required utilities present")
	return nil
}

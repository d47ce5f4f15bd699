package util

import (
	"fmt"

	"github.com/buger/goterm"
)

// Summary returns a colored one line summary of a set of syncs.
func Summary(failed, total int, dryRun bool) string {
	verb := "Synced"
	if dryRun {
		verb = "Dry run synced"
	}

	if failed == 0 {
		return goterm.Color(fmt.Sprintf("%s to %d of %d remotes.", verb, total, total),
			goterm.GREEN)
	}
	return goterm.Color(fmt.Sprintf("%s to %d of %d remotes. %d failed.",
		verb, total-failed, total, failed), goterm.RED)
}

package cmd

import (
	"context"
	"fmt"
	"os"
)

// Forget removes payloads from the journal
func Forget(ctx context.Context, ids []string, verbose bool) {
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "Error: forget requires at least one journal ID\n")
		fmt.Fprintf(os.Stderr, "Usage: darkcrypt forget <id> [id...]\n")
		os.Exit(1)
	}

	dc, _ := open("forget", verbose)
	defer dc.Close()

	removed, err := dc.Forget(ctx, ids)
	for _, id := range removed {
		fmt.Printf("forgotten: %s\n", id)
	}
	if err != nil {
		HandleError(err)
	}
	if len(removed) > 0 {
		fmt.Println("Run 'darkcrypt compact' to reclaim disk space")
	}
}

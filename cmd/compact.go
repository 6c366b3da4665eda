package cmd

import (
	"context"
	"fmt"
	"os"
)

// Compact compacts the journal database to reclaim unused space
func Compact(ctx context.Context, verbose bool) {
	dc, cfg := open("compact", verbose)
	defer dc.Close()

	info, err := os.Stat(cfg.JournalPath)
	if os.IsNotExist(err) {
		fmt.Println("No journal to compact")
		return
	}
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	entries, err := dc.Compact(ctx)
	if err != nil {
		HandleError(err)
	}

	info, err = os.Stat(cfg.JournalPath)
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s (%d entries)\n", formatSize(sizeBefore), formatSize(sizeAfter), entries)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/illarion/darkcrypt/internal/share"
)

const historyTimeFormat = "2006-01-02 15:04"

// History lists journaled payloads
func History(ctx context.Context, verbose bool) {
	dc, _ := open("history", verbose)
	defer dc.Close()

	entries, err := dc.History(ctx)
	if err != nil {
		HandleError(err)
	}

	if len(entries) == 0 {
		fmt.Println("No saved payloads")
		fmt.Println("Use --save with encrypt or decrypt to record them")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tDIRECTION\tSIZE\tLABEL")
	for _, e := range entries {
		label := e.Label
		if label == "" {
			label = e.ShortPayload(24)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Created.Local().Format(historyTimeFormat), e.Direction, formatSize(int64(e.Size)), label)
	}
	w.Flush()
}

// Show prints one journaled payload with its share link
func Show(ctx context.Context, id string, verbose bool) {
	dc, cfg := open("show", verbose)
	defer dc.Close()

	entry, err := dc.Show(ctx, id)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("ID:        %s\n", entry.ID)
	if entry.Label != "" {
		fmt.Printf("Label:     %s\n", entry.Label)
	}
	fmt.Printf("Direction: %s\n", entry.Direction)
	fmt.Printf("Created:   %s\n", entry.Created.Local().Format(time.RFC3339))
	fmt.Printf("Size:      %s\n", formatSize(int64(entry.Size)))
	fmt.Printf("Payload:   %s\n", entry.Payload)
	if link, err := share.BuildLink(cfg.Origin, entry.Payload); err == nil {
		fmt.Printf("Link:      %s\n", link)
	}
}

package cmd

import (
	"fmt"
	"os"
)

// Link prints the share link for a payload
func Link(payload string, verbose bool) {
	payload, err := readInput(payload, os.Stdin, "Paste payload, finish with Ctrl-D:")
	if err != nil {
		HandleError(err)
	}

	dc, _ := open("link", verbose)
	defer dc.Close()

	link, err := dc.Link(payload)
	if err != nil {
		HandleError(err)
	}
	fmt.Println(link)
}

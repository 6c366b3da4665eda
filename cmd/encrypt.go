package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/darkcrypt/internal/core"
	"github.com/illarion/darkcrypt/internal/crypto"
)

// EncryptOptions are the flags of the encrypt command
type EncryptOptions struct {
	Text    string // message given on the command line
	InFile  string // read the message from this file
	Copy    bool
	Link    bool
	Save    bool
	Label   string
	Pass    PassOptions
	Verbose bool
}

// Encrypt seals a message and prints the payload or share link
func Encrypt(ctx context.Context, opts EncryptOptions) {
	if opts.Text != "" && opts.InFile != "" {
		fmt.Fprintf(os.Stderr, "error: give the message as an argument or with --in, not both\n")
		os.Exit(1)
	}

	var message string
	var err error
	if opts.InFile != "" {
		message, err = readFile(opts.InFile)
	} else {
		message, err = readInput(opts.Text, os.Stdin, "Enter message, finish with Ctrl-D:")
	}
	if err != nil {
		HandleError(err)
	}
	if message == "" {
		fmt.Fprintf(os.Stderr, "Error: nothing to encrypt\n")
		os.Exit(1)
	}

	dc, cfg := open("encrypt", opts.Verbose)
	defer dc.Close()

	passphrase := GetPassphraseOrExit(cfg, opts.Pass, true)
	defer crypto.ClearBytes(passphrase)

	plaintext := []byte(message)
	defer crypto.ClearBytes(plaintext)

	result, err := dc.Seal(ctx, plaintext, passphrase, core.SealOptions{
		Label: opts.Label,
		Save:  opts.Save,
		Copy:  opts.Copy,
		Link:  opts.Link,
	})
	if err != nil {
		HandleSecretError(err, passphrase, plaintext)
	}

	if result.Link != "" {
		fmt.Println(result.Link)
	} else {
		fmt.Println(result.Payload)
	}

	if result.ID != "" {
		fmt.Fprintf(os.Stderr, "saved: %s\n", result.ID)
	}

	if opts.Copy {
		waitForClipboard(dc, result)
	}
}

// waitForClipboard keeps the process alive until the copied text is cleared
func waitForClipboard(dc *core.DarkCrypt, result *core.SealResult) {
	if result.CopyErr != nil {
		fmt.Fprintf(os.Stderr, "warning: not copied to clipboard: %s\n", result.CopyErr)
		return
	}

	ttl := dc.ClipboardTTL()
	if ttl <= 0 {
		fmt.Fprintf(os.Stderr, "copied to clipboard\n")
		return
	}

	fmt.Fprintf(os.Stderr, "copied to clipboard, clearing in %s (Ctrl-C to clear now)\n", ttl)
	_ = dc.WaitClipboard(context.Background())
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/illarion/darkcrypt/internal/core"
	"github.com/illarion/darkcrypt/internal/crypto"
)

// DecryptOptions are the flags of the decrypt command
type DecryptOptions struct {
	Input     string // payload, link, fragment or journal ID; stdin when empty
	Out       string // write the message to this file instead of stdout
	Force     bool
	KeepLocal bool
	KeepBoth  bool
	Save      bool
	Label     string
	Pass      PassOptions
	Verbose   bool
}

// Strategy maps the conflict flags to a merge strategy
func (o DecryptOptions) Strategy() (core.MergeStrategy, error) {
	flagCount := boolToInt(o.Force) + boolToInt(o.KeepLocal) + boolToInt(o.KeepBoth)
	if flagCount > 1 {
		return core.StrategyAsk, fmt.Errorf("--force, --keep-local, and --keep-both are mutually exclusive")
	}

	switch {
	case o.Force:
		return core.StrategyUsePayload, nil
	case o.KeepLocal:
		return core.StrategyKeepLocal, nil
	case o.KeepBoth:
		return core.StrategyKeepBoth, nil
	case !term.IsTerminal(int(os.Stdin.Fd())):
		// nobody to ask
		return core.StrategyAbort, nil
	default:
		return core.StrategyAsk, nil
	}
}

// Decrypt recovers a message and prints it or writes it to --out
func Decrypt(ctx context.Context, opts DecryptOptions) {
	strategy, err := opts.Strategy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}

	input, err := readInput(opts.Input, os.Stdin, "Paste payload or link, finish with Ctrl-D:")
	if err != nil {
		HandleError(err)
	}

	dc, cfg := open("decrypt", opts.Verbose)
	defer dc.Close()

	passphrase := GetPassphraseOrExit(cfg, opts.Pass, false)
	defer crypto.ClearBytes(passphrase)

	plaintext, err := dc.Open(ctx, input, passphrase, core.OpenOptions{Save: opts.Save, Label: opts.Label})
	if err != nil {
		HandleSecretError(err, passphrase)
	}

	if opts.Out == "" {
		fmt.Print(plaintext)
		if !strings.HasSuffix(plaintext, "\n") && term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Println()
		}
		return
	}

	result, err := dc.WriteOutput(ctx, opts.Out, plaintext, strategy)
	if err != nil {
		HandleSecretError(err, passphrase)
	}

	switch {
	case result.Unchanged:
		fmt.Fprintf(os.Stderr, "skipped: %s (unchanged)\n", result.Path)
	case result.Written == "":
		fmt.Fprintf(os.Stderr, "skipped: %s (%s)\n", result.Path, result.Resolution)
	default:
		fmt.Fprintf(os.Stderr, "written: %s\n", result.Written)
	}

	if result.Warning != "" {
		fmt.Fprint(os.Stderr, result.Warning)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

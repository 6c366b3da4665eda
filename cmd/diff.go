package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/darkcrypt/internal/core"
	"github.com/illarion/darkcrypt/internal/crypto"
)

// Diff decrypts a payload and compares it with a local file
func Diff(ctx context.Context, input, file string, pass PassOptions, verbose bool) {
	dc, cfg := open("diff", verbose)
	defer dc.Close()

	passphrase := GetPassphraseOrExit(cfg, pass, false)
	defer crypto.ClearBytes(passphrase)

	plaintext, err := dc.Open(ctx, input, passphrase, core.OpenOptions{})
	if err != nil {
		HandleSecretError(err, passphrase)
	}

	diff, err := dc.Diff(ctx, file, plaintext)
	if err != nil {
		HandleSecretError(err, passphrase)
	}

	if diff == "" {
		fmt.Printf("%s matches the message\n", file)
		return
	}
	fmt.Print(diff)
}

package cmd

import (
	"fmt"

	"github.com/illarion/darkcrypt/internal/core"
	"github.com/illarion/darkcrypt/internal/crypto"
	"github.com/illarion/darkcrypt/internal/keyring"
)

// KeyringSave stores a passphrase in the OS keyring under name
func KeyringSave(name string) {
	if err := keyring.ValidateName(name); err != nil {
		HandleError(err)
	}

	// Always prompt, never take the passphrase from the environment
	password, err := core.ReadPasswordConfirm()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if len(password) == 0 {
		HandleError(core.ErrPassphraseRequired)
	}

	if err := keyring.SavePassphrase(name, string(password)); err != nil {
		HandleSecretError(fmt.Errorf("failed to save to keyring: %w", err), password)
	}

	fmt.Printf("Passphrase saved to keyring as %q\n", name)
	fmt.Printf("Use it with: darkcrypt encrypt --keyring %s\n", name)
}

// KeyringDelete removes a passphrase from the OS keyring
func KeyringDelete(name string) {
	if err := keyring.ValidateName(name); err != nil {
		HandleError(err)
	}

	if err := keyring.DeletePassphrase(name); err != nil {
		fmt.Printf("No passphrase stored as %q\n", name)
		return
	}

	fmt.Printf("Passphrase %q removed from keyring\n", name)
}

// KeyringStatus checks if a passphrase is stored under name
func KeyringStatus(name string) {
	if err := keyring.ValidateName(name); err != nil {
		HandleError(err)
	}

	if keyring.HasPassphrase(name) {
		fmt.Printf("Passphrase %q: stored in keyring\n", name)
	} else {
		fmt.Printf("Passphrase %q: not stored\n", name)
	}
}

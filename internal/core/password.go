package core

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/illarion/darkcrypt/internal/crypto"
	"github.com/illarion/darkcrypt/internal/keyring"
)

const PassphraseEnv = "DARKCRYPT_PASSPHRASE"

var ErrPassphraseMismatch = errors.New("passphrases do not match")

// ReadPassword reads a passphrase from the terminal without echoing
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	return password, nil
}

// ReadPasswordConfirm reads a passphrase twice and ensures they match
func ReadPasswordConfirm() ([]byte, error) {
	password1, err := ReadPassword("Enter passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := ReadPassword("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, ErrPassphraseMismatch
	}

	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}


// PassphraseSource describes where a passphrase may come from
type PassphraseSource struct {
	Env     string // value of DARKCRYPT_PASSPHRASE, may be empty
	Keyring string // keyring entry name, may be empty
	Confirm bool   // prompt twice

	// Prompt is called when neither Env nor Keyring yields a passphrase.
	// Nil means the terminal.
	Prompt func(confirm bool) ([]byte, error)
}

// Resolve returns the passphrase: environment first, then the named
// keyring entry, then an interactive prompt. The caller owns the returned
// slice and should clear it.
func (s PassphraseSource) Resolve() ([]byte, error) {
	if s.Env != "" {
		return []byte(s.Env), nil
	}

	if s.Keyring != "" {
		pass, err := keyring.GetPassphrase(s.Keyring)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase from keyring: %w", err)
		}
		return []byte(pass), nil
	}

	prompt := s.Prompt
	if prompt == nil {
		prompt = terminalPrompt
	}

	pass, err := prompt(s.Confirm)
	if err != nil {
		return nil, err
	}
	if len(pass) == 0 {
		return nil, ErrPassphraseRequired
	}
	return pass, nil
}

func terminalPrompt(confirm bool) ([]byte, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil, fmt.Errorf("%w: set %s, use --keyring, or run in a terminal", ErrPassphraseRequired, PassphraseEnv)
	}
	if confirm {
		return ReadPasswordConfirm()
	}
	return ReadPassword("Enter passphrase: ")
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/illarion/darkcrypt/internal/config"
	"github.com/illarion/darkcrypt/internal/core"
	"github.com/illarion/darkcrypt/internal/crypto"
	"github.com/illarion/darkcrypt/internal/envelope"
	"github.com/illarion/darkcrypt/internal/keyring"
	"github.com/illarion/darkcrypt/internal/logger"
	"github.com/illarion/darkcrypt/internal/security"
	"github.com/illarion/darkcrypt/internal/storage"
)

// MaxInputSize caps messages and payloads read from files or stdin
const MaxInputSize = 16 << 20

var ErrInputTooLarge = errors.New("input too large")

// PassOptions selects where the passphrase comes from
type PassOptions struct {
	Keyring string // keyring entry name
	PassEnv string // read the passphrase from this variable instead of DARKCRYPT_PASSPHRASE
}

// open loads the configuration and creates the application. It exits on error.
func open(command string, verbose bool) (*core.DarkCrypt, *config.Config) {
	cfg, err := config.Load()
	if err != nil {
		HandleError(err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.NewCLI(level)
	log.Debug().Str("command", command).Msg("starting")

	dc, err := core.New(cfg, log)
	if err != nil {
		HandleError(err)
	}
	return dc, cfg
}

// GetPassphrase resolves the passphrase from the environment, the keyring
// or the terminal. The caller is responsible for clearing the result.
func GetPassphrase(cfg *config.Config, opts PassOptions, confirm bool) ([]byte, error) {
	source := core.PassphraseSource{
		Env:     cfg.Passphrase,
		Keyring: opts.Keyring,
		Confirm: confirm,
	}

	if opts.PassEnv != "" {
		source.Env = os.Getenv(opts.PassEnv)
		if source.Env == "" {
			return nil, fmt.Errorf("%w: %s is empty", core.ErrPassphraseRequired, opts.PassEnv)
		}
	}
	return source.Resolve()
}

// GetPassphraseOrExit is like GetPassphrase but exits on error
func GetPassphraseOrExit(cfg *config.Config, opts PassOptions, confirm bool) []byte {
	pass, err := GetPassphrase(cfg, opts, confirm)
	if err != nil {
		HandleError(err)
	}
	return pass
}

// readInput returns arg when set, otherwise the contents of r up to
// MaxInputSize. prompt is shown when r is an interactive terminal.
func readInput(arg string, r io.Reader, prompt string) (string, error) {
	if arg != "" {
		return arg, nil
	}

	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) && prompt != "" {
		fmt.Fprintln(os.Stderr, prompt)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxInputSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) > MaxInputSize {
		return "", fmt.Errorf("%w (max %s)", ErrInputTooLarge, formatSize(MaxInputSize))
	}
	return string(data), nil
}

// readFile reads a user supplied input file up to MaxInputSize
func readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return readInput("", f, "")
}

// ErrorMessage turns an error into the text shown to the user
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrPassphraseRequired):
		return "passphrase required"
	case errors.Is(err, core.ErrPassphraseMismatch):
		return "passphrases do not match"
	case errors.Is(err, envelope.ErrUnsupportedVersion):
		return "invalid payload format (unsupported version)"
	case errors.Is(err, envelope.ErrMalformedPayload):
		return "invalid payload format"
	case errors.Is(err, envelope.ErrDecryptionFailed):
		return "decryption failed (wrong passphrase or corrupted payload)"
	case errors.Is(err, envelope.ErrDecodingFailed):
		return "decrypted message is not valid text"
	case errors.Is(err, envelope.ErrCryptoUnavailable):
		return "cryptography is not available on this system"
	case errors.Is(err, envelope.ErrEmptyPassphrase):
		return "passphrase required"
	case errors.Is(err, envelope.ErrEmptyPlaintext):
		return "nothing to encrypt"
	case errors.Is(err, envelope.ErrInvalidText):
		return "message is not valid UTF-8 text"
	case errors.Is(err, envelope.ErrInvalidInput):
		return "nothing to decrypt"
	case errors.Is(err, core.ErrConflict):
		return err.Error() + "\nUse --force, --keep-local or --keep-both to decide non-interactively"
	case errors.Is(err, security.ErrPathEscapes), errors.Is(err, security.ErrAbsolutePath):
		return "output path must stay inside the current directory"
	case errors.Is(err, storage.ErrEntryNotFound):
		return err.Error() + "\nUse 'darkcrypt history' to list saved payloads"
	case errors.Is(err, core.ErrNoJournal):
		return "journal is empty\nUse --save with encrypt or decrypt to record payloads"
	case errors.Is(err, keyring.ErrNotFound):
		return err.Error() + "\nUse 'darkcrypt keyring save NAME' to store one"
	default:
		return err.Error()
	}
}

var osExit = os.Exit

// HandleError prints the error and exits with status 1
func HandleError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", ErrorMessage(err))
	osExit(1)
}

// HandleSecretError wipes secrets, then behaves like HandleError. Deferred
// wipes do not run once the process exits.
func HandleSecretError(err error, secrets ...[]byte) {
	for _, s := range secrets {
		crypto.ClearBytes(s)
	}
	HandleError(err)
}

// formatSize formats a size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

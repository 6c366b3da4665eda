// Package keyring stores named passphrases in the OS keyring so they do
// not have to be typed or exported in the environment.
package keyring

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/zalando/go-keyring"
)

const serviceName = "darkcrypt"

var (
	ErrInvalidName = errors.New("invalid keyring entry name")
	ErrNotFound    = errors.New("passphrase not found in keyring")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidateName checks that name is usable as a keyring account
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// SavePassphrase stores a passphrase under name
func SavePassphrase(name string, passphrase string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return keyring.Set(serviceName, name, passphrase)
}

// GetPassphrase retrieves the passphrase stored under name
func GetPassphrase(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	pass, err := keyring.Get(serviceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return pass, err
}

// DeletePassphrase removes the passphrase stored under name
func DeletePassphrase(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := keyring.Delete(serviceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// HasPassphrase checks if a passphrase is stored under name
func HasPassphrase(name string) bool {
	_, err := GetPassphrase(name)
	return err == nil
}

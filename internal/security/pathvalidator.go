package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrPathEscapes  = errors.New("path escapes working directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrIsDirectory  = errors.New("path is a directory")
)

// PathValidator confines reads and writes of message files to one
// directory using os.Root.
type PathValidator struct {
	root    *os.Root
	rootDir string
}

// New opens dir as the confinement root
func New(dir string) (*PathValidator, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open root: %w", err)
	}

	return &PathValidator{
		root:    root,
		rootDir: absPath,
	}, nil
}

// Close releases the root handle
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute confinement directory
func (pv *PathValidator) Dir() string {
	return pv.rootDir
}

// Validate cleans userPath and rejects empty, absolute and escaping paths.
// The result is relative to the root and uses the platform separator.
func (pv *PathValidator) Validate(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if filepath.IsAbs(userPath) {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
	}

	clean := filepath.Clean(userPath)
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}
	return clean, nil
}

// ReadFile reads a file inside the root
func (pv *PathValidator) ReadFile(path string) ([]byte, error) {
	clean, err := pv.Validate(path)
	if err != nil {
		return nil, err
	}
	return pv.root.ReadFile(clean)
}

// WriteFile writes a file inside the root, creating parent directories
// with owner-only permissions.
func (pv *PathValidator) WriteFile(path string, data []byte, perm os.FileMode) error {
	clean, err := pv.Validate(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(clean); dir != "." {
		if err := pv.root.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if info, err := pv.root.Stat(clean); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, clean)
	}

	return pv.root.WriteFile(clean, data, perm)
}

// Exists reports whether a regular file exists at path inside the root
func (pv *PathValidator) Exists(path string) (bool, error) {
	clean, err := pv.Validate(path)
	if err != nil {
		return false, err
	}

	info, err := pv.root.Stat(clean)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%w: %s", ErrIsDirectory, clean)
	}
	return true, nil
}

package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Exposure describes how git sees a decrypted output file
type Exposure struct {
	IsRepo  bool
	Tracked bool // file is already committed or staged
	Ignored bool // file matches a .gitignore rule
}

// Risky reports whether the file could end up in a commit
func (e Exposure) Risky() bool {
	return e.IsRepo && (e.Tracked || !e.Ignored)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckExposure inspects a path relative to workDir. A missing git binary
// or a directory outside any repository yields a zero Exposure.
func CheckExposure(workDir, path string) Exposure {
	if !IsGitRepo(workDir) {
		return Exposure{}
	}
	return Exposure{
		IsRepo:  true,
		Tracked: IsTracked(workDir, path),
		Ignored: IsIgnored(workDir, path),
	}
}

// FormatWarning returns a warning line for a risky exposure, or "" if
// there is nothing to report.
func FormatWarning(path string, e Exposure) string {
	switch {
	case !e.Risky():
		return ""
	case e.Tracked:
		return fmt.Sprintf("warning: %s is tracked by git, decrypted text may be committed (run: git rm --cached %s)\n", path, path)
	default:
		return fmt.Sprintf("warning: %s is not in .gitignore, decrypted text may be committed\n", path)
	}
}

package core

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/term"
)

const (
	BinarySampleSize   = 8192 // Bytes to sample for text/binary detection
	BinaryThresholdPct = 10   // Max % non-printable chars for text files
)

// MergeStrategy defines how an existing output file is treated on decrypt
type MergeStrategy int

const (
	StrategyAsk        MergeStrategy = iota // Ask the user
	StrategyKeepLocal                       // Leave the local file alone
	StrategyUsePayload                      // Overwrite with the decrypted message
	StrategyKeepBoth                        // Save the message as .from-payload next to it
	StrategyAbort                           // Fail on conflict
)

// ConflictResolution is the choice made for a single conflict
type ConflictResolution int

const (
	ResolutionKeepLocal ConflictResolution = iota
	ResolutionUsePayload
	ResolutionEditMerged
	ResolutionKeepBoth
	ResolutionSkip
)

func (r ConflictResolution) String() string {
	switch r {
	case ResolutionKeepLocal:
		return "kept local"
	case ResolutionUsePayload:
		return "written"
	case ResolutionEditMerged:
		return "merged"
	case ResolutionKeepBoth:
		return "kept both"
	default:
		return "skipped"
	}
}

// ConflictResult contains the resolution and optionally merged data
type ConflictResult struct {
	Resolution ConflictResolution
	MergedData []byte // Populated when Resolution == ResolutionEditMerged
}

// Terminal is where conflict prompts are shown and answered
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// StdTerminal returns a Terminal on the process stdin/stdout
func StdTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout}
}

func (t *Terminal) printf(format string, args ...any) {
	fmt.Fprintf(t.Out, format, args...)
}

// DetectFileType determines if data is likely text.
//
// Detection heuristic (in order):
//  1. Null bytes present → binary
//  2. Invalid UTF-8 → binary
//  3. >10% non-printable control chars → binary
func DetectFileType(data []byte) bool {
	if len(data) == 0 {
		return true
	}

	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sampleSize := BinarySampleSize
	if len(data) < sampleSize {
		sampleSize = len(data)
	}
	// Don't cut a multi-byte rune at the sample boundary
	for i := 0; i < utf8.UTFMax-1 && sampleSize < len(data) && !utf8.RuneStart(data[sampleSize]); i++ {
		sampleSize--
	}
	sample := data[:sampleSize]

	if !utf8.Valid(sample) {
		return false
	}

	nonPrintable := 0
	for _, b := range sample {
		// tab, newline and carriage return are fine
		if b < 32 && b != 9 && b != 10 && b != 13 {
			nonPrintable++
		}
		if b == 127 {
			nonPrintable++
		}
	}

	threshold := len(sample) * BinaryThresholdPct / 100
	return nonPrintable <= threshold
}

// CompareFiles reports whether two contents are identical (SHA-256)
func CompareFiles(local, payloadData []byte) bool {
	localHash := sha256.Sum256(local)
	payloadHash := sha256.Sum256(payloadData)
	return bytes.Equal(localHash[:], payloadHash[:])
}

// HandleConflict decides what to do with a local file that differs from
// the decrypted message. Only StrategyAsk touches the terminal.
func HandleConflict(t *Terminal, path string, localData, payloadData []byte, strategy MergeStrategy) (*ConflictResult, error) {
	switch strategy {
	case StrategyKeepLocal:
		return &ConflictResult{Resolution: ResolutionKeepLocal}, nil
	case StrategyUsePayload:
		return &ConflictResult{Resolution: ResolutionUsePayload}, nil
	case StrategyKeepBoth:
		return &ConflictResult{Resolution: ResolutionKeepBoth}, nil
	case StrategyAbort:
		return &ConflictResult{Resolution: ResolutionSkip}, fmt.Errorf("%w: %s", ErrConflict, path)
	}

	isText := DetectFileType(localData)

	t.printf("\nwarning: %s already exists and differs from the decrypted message\n", path)
	t.printf("\nOptions:\n")
	t.printf("  [l] Keep local file\n")
	t.printf("  [p] Use payload (overwrite local file)\n")
	if isText {
		t.printf("  [e] Edit merged (opens in $EDITOR)\n")
	}
	t.printf("  [b] Keep both (save message as %s)\n", path+FromPayloadSuffix)
	t.printf("  [d] Show diff\n")
	t.printf("  [x] Skip\n")

	for {
		t.printf("\nYour choice: ")
		choice, err := t.readChoice()
		if err != nil {
			return &ConflictResult{Resolution: ResolutionSkip}, err
		}

		switch choice {
		case "l":
			return &ConflictResult{Resolution: ResolutionKeepLocal}, nil
		case "p":
			return &ConflictResult{Resolution: ResolutionUsePayload}, nil
		case "e":
			if !isText {
				t.printf("Cannot edit merge for binary files\n")
				continue
			}
			mergedData, err := t.handleEditMerge(path, localData, payloadData)
			if err != nil {
				t.printf("Error during merge: %v\n", err)
				continue
			}
			return &ConflictResult{Resolution: ResolutionEditMerged, MergedData: mergedData}, nil
		case "b":
			return &ConflictResult{Resolution: ResolutionKeepBoth}, nil
		case "d":
			diff, err := GenerateUnifiedDiff(path, localData, payloadData)
			if err != nil {
				t.printf("Error generating diff: %v\n", err)
				continue
			}
			t.printf("\n%s", diff)
		case "x":
			return &ConflictResult{Resolution: ResolutionSkip}, nil
		default:
			validOptions := "l, p, b, d, x"
			if isText {
				validOptions = "l, p, e, b, d, x"
			}
			t.printf("Invalid choice. Please enter %s\n", validOptions)
		}
	}
}

// readChoice reads a single character choice, in raw mode when In is a terminal
func (t *Terminal) readChoice() (string, error) {
	f, ok := t.In.(*os.File)
	if ok && term.IsTerminal(int(f.Fd())) {
		oldState, err := term.MakeRaw(int(f.Fd()))
		if err == nil {
			defer func() { _ = term.Restore(int(f.Fd()), oldState) }()

			buf := make([]byte, 1)
			if _, err := f.Read(buf); err != nil {
				return "", err
			}
			choice := strings.ToLower(string(buf[0]))
			t.printf("%s\r\n", choice)
			return choice, nil
		}
	}

	var input string
	if _, err := fmt.Fscanln(t.In, &input); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(input)), nil
}

// getEditor returns the editor to use, checking environment variables with fallback
func getEditor() string {
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if runtime.GOOS == "windows" {
		return "notepad"
	}
	return "vi"
}

// createLineDiff creates a line-level diff with conflict markers only around differences
func createLineDiff(localData, payloadData []byte) []byte {
	dmp := diffmatchpatch.New()

	a, b, lineArray := dmp.DiffLinesToChars(string(localData), string(payloadData))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	return buildConflictFromDiffs(diffs)
}

// buildConflictFromDiffs converts diff output to conflict-marked content.
// Equal sections pass through unchanged, delete/insert runs become hunks.
func buildConflictFromDiffs(diffs []diffmatchpatch.Diff) []byte {
	var buf bytes.Buffer

	writeRun := func(i int, typ diffmatchpatch.Operation) int {
		for i < len(diffs) && diffs[i].Type == typ {
			text := diffs[i].Text
			buf.WriteString(text)
			if len(text) > 0 && text[len(text)-1] != '\n' {
				buf.WriteByte('\n')
			}
			i++
		}
		return i
	}

	i := 0
	for i < len(diffs) {
		if diffs[i].Type == diffmatchpatch.DiffEqual {
			buf.WriteString(diffs[i].Text)
			i++
			continue
		}

		buf.WriteString("<<<<<<< local\n")
		i = writeRun(i, diffmatchpatch.DiffDelete)
		buf.WriteString("=======\n")
		i = writeRun(i, diffmatchpatch.DiffInsert)
		buf.WriteString(">>>>>>> payload\n")
	}

	return buf.Bytes()
}

// createConflictFile writes a 0600 temp file with conflict markers
func createConflictFile(path string, localData, payloadData []byte) (string, error) {
	// Keep the extension for syntax highlighting
	pattern := "darkcrypt-merge-*" + filepath.Ext(path)

	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmpFile.Name()

	if err := os.Chmod(name, FilePermSecure); err != nil {
		tmpFile.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	if _, err := tmpFile.Write(createLineDiff(localData, payloadData)); err != nil {
		tmpFile.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to write conflict content: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return name, nil
}

// invokeEditor opens the editor and waits for the user to finish
func (t *Terminal) invokeEditor(filename string) error {
	editor := getEditor()

	if _, err := exec.LookPath(editor); err != nil {
		return fmt.Errorf("editor '%s' not found: %w\nPlease set VISUAL or EDITOR environment variable", editor, err)
	}

	cmd := exec.Command(editor, filename)
	// only a real terminal is handed over; piped input stays for the prompts
	if f, ok := t.In.(*os.File); ok {
		cmd.Stdin = f
	}
	cmd.Stdout = t.Out
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		return fmt.Errorf("editor exited with code %d", exitErr.ExitCode())
	}
	return err
}

// handleEditMerge runs the editor-based merge and returns the result
func (t *Terminal) handleEditMerge(path string, localData, payloadData []byte) ([]byte, error) {
	name, err := createConflictFile(path, localData, payloadData)
	if err != nil {
		return nil, err
	}
	defer os.Remove(name)

	t.printf("\nopening editor for merge...\n")

	if err := t.invokeEditor(name); err != nil {
		return nil, err
	}

	mergedData, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read edited file: %w", err)
	}

	if len(mergedData) == 0 {
		if !t.confirm("\nwarning: edited file is empty\nUse this empty content? [y/N]: ") {
			return nil, fmt.Errorf("merge aborted by user")
		}
	}

	if hasConflictMarkers(mergedData) {
		if !t.confirm("\nwarning: conflict markers still present in file\nContinue anyway? [y/N]: ") {
			return nil, fmt.Errorf("merge aborted by user")
		}
	}

	return mergedData, nil
}

func (t *Terminal) confirm(prompt string) bool {
	t.printf("%s", prompt)
	choice, err := t.readChoice()
	return err == nil && choice == "y"
}

// hasConflictMarkers checks if content still contains unresolved conflict markers
func hasConflictMarkers(data []byte) bool {
	return bytes.Contains(data, []byte("<<<<<<<")) ||
		bytes.Contains(data, []byte("=======")) ||
		bytes.Contains(data, []byte(">>>>>>>"))
}

// GenerateUnifiedDiff renders a unified diff from the local file to the
// decrypted message. It returns "" when both are identical.
func GenerateUnifiedDiff(path string, localData, payloadData []byte) (string, error) {
	if CompareFiles(localData, payloadData) {
		return "", nil
	}

	if !DetectFileType(localData) || !DetectFileType(payloadData) {
		return fmt.Sprintf("Binary file %s differs from message\n", path), nil
	}

	dmp := diffmatchpatch.New()

	localStr, payloadStr := string(localData), string(payloadData)
	a, b, lineArray := dmp.DiffLinesToChars(localStr, payloadStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(localStr, diffs)
	if len(patches) == 0 {
		return "", nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- a/%s\n", path))
	result.WriteString(fmt.Sprintf("+++ b/%s (payload)\n", path))
	result.WriteString(dmp.PatchToText(patches))

	return result.String(), nil
}

package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/illarion/darkcrypt/internal/clipboard"
	"github.com/illarion/darkcrypt/internal/config"
	"github.com/illarion/darkcrypt/internal/crypto"
	"github.com/illarion/darkcrypt/internal/envelope"
	"github.com/illarion/darkcrypt/internal/security"
	"github.com/illarion/darkcrypt/internal/storage"
)

var passphrase = []byte("correct horse")

// fastProvider keeps the real primitives but derives with one iteration
type fastProvider struct {
	*crypto.Provider
}

func (p fastProvider) DeriveKey(passphrase, salt []byte, _ int) ([]byte, error) {
	return p.Provider.DeriveKey(passphrase, salt, 1)
}

type memClipboard struct {
	mu   sync.Mutex
	text string
}

func (m *memClipboard) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

func (m *memClipboard) ReadAll() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

type testEnv struct {
	dc   *DarkCrypt
	dir  string
	cfg  *config.Config
	clip *memClipboard
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Origin:       "https://darkcrypt.app",
		ClipboardTTL: time.Hour,
		JournalPath:  filepath.Join(t.TempDir(), "journal.db"),
	}
	clip := &memClipboard{}

	opts = append([]Option{
		WithProvider(fastProvider{crypto.NewProvider()}),
		WithClipboard(clip),
		WithWorkDir(dir),
		WithTerminal(&Terminal{In: strings.NewReader(""), Out: os.Stderr}),
	}, opts...)

	dc, err := New(cfg, nil, opts...)
	if err != nil {
		t.Fatalf("Failed to create DarkCrypt: %v", err)
	}
	t.Cleanup(func() { dc.Close() })

	return &testEnv{dc: dc, dir: dir, cfg: cfg, clip: clip}
}

func TestNew_CryptoUnavailable(t *testing.T) {
	cfg := &config.Config{Origin: "https://darkcrypt.app"}
	broken := crypto.NewProvider(crypto.WithRandom(strings.NewReader("")))

	_, err := New(cfg, nil, WithProvider(broken), WithClipboard(&memClipboard{}))
	if !errors.Is(err, envelope.ErrCryptoUnavailable) {
		t.Fatalf("expected ErrCryptoUnavailable, got %v", err)
	}
}

func TestSealOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.dc.Seal(ctx, []byte("meet at noon"), passphrase, SealOptions{})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if !strings.HasPrefix(result.Payload, "v1.") {
		t.Errorf("unexpected payload: %s", result.Payload)
	}
	if result.Link != "" || result.ID != "" || result.Copied {
		t.Errorf("no extras were requested: %+v", result)
	}

	plaintext, err := env.dc.Open(ctx, result.Payload, passphrase, OpenOptions{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if plaintext != "meet at noon" {
		t.Errorf("got %q", plaintext)
	}

	// nothing was journaled
	if _, err := os.Stat(env.cfg.JournalPath); !os.IsNotExist(err) {
		t.Error("journal should not be created without Save")
	}
}

func TestSealLinkCopySave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.dc.Seal(ctx, []byte("hello"), passphrase, SealOptions{
		Label: "to bob",
		Save:  true,
		Copy:  true,
		Link:  true,
	})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if result.Link != "https://darkcrypt.app/#"+result.Payload {
		t.Errorf("unexpected link: %s", result.Link)
	}
	if !result.Copied || result.CopyErr != nil {
		t.Errorf("expected copy to succeed: %+v", result)
	}
	if got, _ := env.clip.ReadAll(); got != result.Link {
		t.Errorf("clipboard holds %q, want the link", got)
	}
	if result.ID != "00000001" {
		t.Errorf("ID = %s, want 00000001", result.ID)
	}

	entry, err := env.dc.Show(ctx, result.ID)
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if entry.Payload != result.Payload || entry.Label != "to bob" || entry.Direction != storage.DirectionSent {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestSealCopyUnavailable(t *testing.T) {
	cfg := &config.Config{Origin: "https://darkcrypt.app", ClipboardTTL: time.Second}
	dc, err := New(cfg, nil, WithProvider(fastProvider{crypto.NewProvider()}), WithWorkDir(t.TempDir()))
	if err != nil {
		t.Fatalf("Failed to create DarkCrypt: %v", err)
	}
	defer dc.Close()
	dc.clip = clipboard.New(nil, time.Second, nil)

	result, err := dc.Seal(context.Background(), []byte("hello"), passphrase, SealOptions{Copy: true})
	if err != nil {
		t.Fatalf("Seal should succeed without a clipboard: %v", err)
	}
	if result.Copied || !errors.Is(result.CopyErr, clipboard.ErrUnavailable) {
		t.Errorf("expected clipboard failure to be reported: %+v", result)
	}
	if result.Payload == "" {
		t.Error("payload missing")
	}
}

func TestSealErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.dc.Seal(ctx, nil, passphrase, SealOptions{}); !errors.Is(err, envelope.ErrInvalidInput) {
		t.Errorf("empty plaintext: expected ErrInvalidInput, got %v", err)
	}
	if _, err := env.dc.Seal(ctx, []byte("x"), nil, SealOptions{}); !errors.Is(err, envelope.ErrInvalidInput) {
		t.Errorf("empty passphrase: expected ErrInvalidInput, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := env.dc.Seal(cancelled, []byte("x"), passphrase, SealOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOpenInputForms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.dc.Seal(ctx, []byte("secret"), passphrase, SealOptions{Link: true, Save: true})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	inputs := map[string]string{
		"payload":        result.Payload,
		"padded payload": "  " + result.Payload + "\n",
		"link":           result.Link,
		"fragment":       "#" + result.Payload,
		"journal ID":     result.ID,
		"short ID":       "1",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			plaintext, err := env.dc.Open(ctx, input, passphrase, OpenOptions{})
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if plaintext != "secret" {
				t.Errorf("got %q", plaintext)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.dc.Seal(ctx, []byte("secret"), passphrase, SealOptions{})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	tests := []struct {
		name  string
		input string
		pass  []byte
		want  error
	}{
		{"wrong passphrase", result.Payload, []byte("wrong"), envelope.ErrDecryptionFailed},
		{"empty input", "   ", passphrase, envelope.ErrInvalidInput},
		{"empty fragment", "https://darkcrypt.app/#", passphrase, envelope.ErrInvalidInput},
		{"garbage", "not a payload", passphrase, envelope.ErrMalformedPayload},
		{"unknown version", "v9.a.b.c", passphrase, envelope.ErrUnsupportedVersion},
		{"unknown journal ID", "deadbeef", passphrase, storage.ErrEntryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.dc.Open(ctx, tt.input, tt.pass, OpenOptions{})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestOpenSaveReceived(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.dc.Seal(ctx, []byte("secret"), passphrase, SealOptions{})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := env.dc.Open(ctx, result.Payload, passphrase, OpenOptions{Save: true, Label: "from alice"}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// a failed decrypt is never journaled
	if _, err := env.dc.Open(ctx, result.Payload, []byte("wrong"), OpenOptions{Save: true}); err == nil {
		t.Fatal("expected wrong passphrase to fail")
	}

	// reopening by ID does not add a duplicate
	if _, err := env.dc.Open(ctx, "1", passphrase, OpenOptions{Save: true}); err != nil {
		t.Fatalf("Open by ID failed: %v", err)
	}

	entries, err := env.dc.History(ctx)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Direction != storage.DirectionReceived || entries[0].Label != "from alice" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestLink(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.dc.Seal(context.Background(), []byte("x"), passphrase, SealOptions{})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	link, err := env.dc.Link(result.Payload)
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if link != "https://darkcrypt.app/#"+result.Payload {
		t.Errorf("unexpected link: %s", link)
	}

	if _, err := env.dc.Link("v1.not.valid"); !errors.Is(err, envelope.ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
	if _, err := env.dc.Link(""); !errors.Is(err, envelope.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestJournalManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entries, err := env.dc.History(ctx)
	if err != nil || len(entries) != 0 {
		t.Fatalf("History on missing journal = %v, %v; want empty", entries, err)
	}
	if _, err := env.dc.Show(ctx, "1"); !errors.Is(err, storage.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
	if _, err := os.Stat(env.cfg.JournalPath); !os.IsNotExist(err) {
		t.Error("reading the history must not create the journal")
	}

	for i := 0; i < 3; i++ {
		if _, err := env.dc.Seal(ctx, []byte("msg"), passphrase, SealOptions{Save: true}); err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
	}

	removed, err := env.dc.Forget(ctx, []string{"1", "00000003", "ff"})
	if !errors.Is(err, storage.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound for unknown ID, got %v", err)
	}
	if len(removed) != 2 || removed[0] != "00000001" || removed[1] != "00000003" {
		t.Errorf("unexpected removed IDs: %v", removed)
	}

	left, err := env.dc.Compact(ctx)
	if err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	if left != 1 {
		t.Errorf("Compact left %d entries, want 1", left)
	}

	entries, err = env.dc.History(ctx)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "00000002" {
		t.Errorf("unexpected entries after forget: %+v", entries)
	}

	if _, err := env.dc.Forget(ctx, nil); err == nil {
		t.Error("expected error when no IDs given")
	}
}

func TestJournalDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.JournalPath = ""

	_, err := env.dc.Seal(context.Background(), []byte("x"), passphrase, SealOptions{Save: true})
	if !errors.Is(err, ErrJournalDisabled) {
		t.Errorf("expected ErrJournalDisabled, got %v", err)
	}
}

func TestOpenPayloadFormsSkipJournal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.dc.Seal(ctx, []byte("secret"), passphrase, SealOptions{Link: true})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	env.cfg.JournalPath = ""

	for _, input := range []string{result.Payload, result.Link, "#" + result.Payload} {
		plaintext, err := env.dc.Open(ctx, input, passphrase, OpenOptions{})
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", input, err)
		}
		if plaintext != "secret" {
			t.Errorf("got %q", plaintext)
		}
	}

	if _, err := env.dc.Open(ctx, "1", passphrase, OpenOptions{}); !errors.Is(err, ErrJournalDisabled) {
		t.Errorf("bare ID should go to the journal, got %v", err)
	}
	if _, err := env.dc.Open(ctx, "#1", passphrase, OpenOptions{}); !errors.Is(err, envelope.ErrMalformedPayload) {
		t.Errorf("fragment should go to the codec, got %v", err)
	}
}

func TestHistoryUninitializedJournal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	db, err := storage.Open(env.cfg.JournalPath)
	if err != nil {
		t.Fatalf("Failed to create journal file: %v", err)
	}
	db.Close()

	entries, err := env.dc.History(ctx)
	if err != nil || entries != nil {
		t.Errorf("History() = %v, %v; want nil, nil", entries, err)
	}
	if _, err := env.dc.Show(ctx, "1"); !errors.Is(err, storage.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}

	db, err = storage.Open(env.cfg.JournalPath)
	if err != nil {
		t.Fatalf("Failed to reopen journal: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("IsInitialized failed: %v", err)
	}
	if initialized {
		t.Error("reading the history must not initialize the journal")
	}
}

func TestWriteOutput_NewFile(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.dc.WriteOutput(context.Background(), "inbox/note.txt", "hello\n", StrategyAsk)
	if err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	if result.Written != filepath.Join("inbox", "note.txt") {
		t.Errorf("Written = %q", result.Written)
	}

	path := filepath.Join(env.dir, "inbox", "note.txt")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if string(content) != "hello\n" {
		t.Errorf("content mismatch: %q", content)
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if info.Mode().Perm() != FilePermSecure {
			t.Errorf("permissions = %o, want %o", info.Mode().Perm(), FilePermSecure)
		}
	}
}

func TestWriteOutput_Unchanged(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "note.txt")
	if err := os.WriteFile(path, []byte("same"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	// StrategyAbort would fail on a real conflict
	result, err := env.dc.WriteOutput(context.Background(), "note.txt", "same", StrategyAbort)
	if err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	if !result.Unchanged || result.Written != "" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestWriteOutput_Strategies(t *testing.T) {
	tests := []struct {
		name       string
		strategy   MergeStrategy
		wantLocal  string
		wantCopy   string
		wantResult ConflictResolution
	}{
		{"keep local", StrategyKeepLocal, "local", "", ResolutionKeepLocal},
		{"use payload", StrategyUsePayload, "message", "", ResolutionUsePayload},
		{"keep both", StrategyKeepBoth, "local", "message", ResolutionKeepBoth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			path := filepath.Join(env.dir, "note.txt")
			if err := os.WriteFile(path, []byte("local"), 0644); err != nil {
				t.Fatalf("Failed to create file: %v", err)
			}

			result, err := env.dc.WriteOutput(context.Background(), "note.txt", "message", tt.strategy)
			if err != nil {
				t.Fatalf("WriteOutput failed: %v", err)
			}
			if result.Resolution != tt.wantResult {
				t.Errorf("resolution = %v, want %v", result.Resolution, tt.wantResult)
			}

			content, _ := os.ReadFile(path)
			if string(content) != tt.wantLocal {
				t.Errorf("local content = %q, want %q", content, tt.wantLocal)
			}

			copyContent, err := os.ReadFile(path + FromPayloadSuffix)
			if tt.wantCopy == "" {
				if err == nil {
					t.Error("no .from-payload copy expected")
				}
				return
			}
			if string(copyContent) != tt.wantCopy {
				t.Errorf("copy content = %q, want %q", copyContent, tt.wantCopy)
			}
		})
	}
}

func TestWriteOutput_KeepBothNumbered(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"note.txt", "note.txt.from-payload", "note.txt.from-payload.1"} {
		if err := os.WriteFile(filepath.Join(env.dir, name), []byte("taken"), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}

	result, err := env.dc.WriteOutput(context.Background(), "note.txt", "message", StrategyKeepBoth)
	if err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	if result.Written != "note.txt.from-payload.2" {
		t.Errorf("Written = %q, want note.txt.from-payload.2", result.Written)
	}
}

func TestWriteOutput_Ask(t *testing.T) {
	env := newTestEnv(t, WithTerminal(&Terminal{In: strings.NewReader("p\n"), Out: &strings.Builder{}}))
	path := filepath.Join(env.dir, "note.txt")
	if err := os.WriteFile(path, []byte("local"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if _, err := env.dc.WriteOutput(context.Background(), "note.txt", "message", StrategyAsk); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "message" {
		t.Errorf("content = %q, want message", content)
	}
}

func TestWriteOutput_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(env.dir, "note.txt"), []byte("local"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if _, err := env.dc.WriteOutput(ctx, "note.txt", "message", StrategyAbort); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	if _, err := env.dc.WriteOutput(ctx, "../escape.txt", "message", StrategyUsePayload); !errors.Is(err, security.ErrPathEscapes) {
		t.Errorf("expected ErrPathEscapes, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(env.dir), "escape.txt")); err == nil {
		t.Error("file written outside the working directory")
	}

	if err := os.Mkdir(filepath.Join(env.dir, "sub"), 0700); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if _, err := env.dc.WriteOutput(ctx, "sub", "message", StrategyUsePayload); !errors.Is(err, security.ErrIsDirectory) {
		t.Errorf("expected ErrIsDirectory, got %v", err)
	}
}

func TestDiff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	diff, err := env.dc.Diff(ctx, "missing.txt", "new line\n")
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if !strings.Contains(diff, "+new line") {
		t.Errorf("missing file should diff as empty: %s", diff)
	}

	if err := os.WriteFile(filepath.Join(env.dir, "note.txt"), []byte("a\nold\n"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	diff, err = env.dc.Diff(ctx, "note.txt", "a\nnew\n")
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if !strings.Contains(diff, "-old") || !strings.Contains(diff, "+new") {
		t.Errorf("unexpected diff:\n%s", diff)
	}

	diff, err = env.dc.Diff(ctx, "note.txt", "a\nold\n")
	if err != nil || diff != "" {
		t.Errorf("identical content: got %q, %v", diff, err)
	}

	if _, err := env.dc.Diff(ctx, "/etc/passwd", "x"); err == nil {
		t.Error("expected absolute path to be rejected")
	}
}

func TestParseJournalID(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1", "00000001", true},
		{"2a", "0000002a", true},
		{"0000002A", "0000002a", true},
		{"00000000", "", false},
		{"", "", false},
		{"123456789", "", false},
		{"v1.abc", "", false},
		{"hello", "", false},
	}

	for _, tt := range tests {
		got, ok := parseJournalID(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseJournalID(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

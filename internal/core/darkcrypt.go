package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/illarion/darkcrypt/internal/clipboard"
	"github.com/illarion/darkcrypt/internal/config"
	"github.com/illarion/darkcrypt/internal/crypto"
	"github.com/illarion/darkcrypt/internal/envelope"
	"github.com/illarion/darkcrypt/internal/git"
	"github.com/illarion/darkcrypt/internal/logger"
	"github.com/illarion/darkcrypt/internal/security"
	"github.com/illarion/darkcrypt/internal/share"
	"github.com/illarion/darkcrypt/internal/storage"
)

const (
	FilePermSecure    = 0600 // File: owner rw only
	MaxPayloadCopies  = 100  // Max numbered .from-payload.N copies
	FromPayloadSuffix = ".from-payload"
)

var (
	ErrPassphraseRequired = errors.New("passphrase required")
	ErrConflict           = errors.New("output file exists and differs")
	ErrTooManyCopies      = errors.New("too many payload copies")
	ErrJournalDisabled    = errors.New("journal disabled")
	ErrNoJournal          = errors.New("journal is empty")
)

// SealOptions controls what happens to a fresh payload besides returning it
type SealOptions struct {
	Label string // journal label
	Save  bool   // record the payload in the journal
	Copy  bool   // copy to the clipboard (the link if Link is set)
	Link  bool   // build a share link
}

// SealResult is the outcome of Seal
type SealResult struct {
	Payload string
	Link    string // set when SealOptions.Link
	ID      string // journal ID when SealOptions.Save
	Copied  bool
	CopyErr error // clipboard failure; the payload is still valid
}

// OpenOptions controls journaling of received payloads
type OpenOptions struct {
	Save  bool
	Label string
}

// WriteResult describes what WriteOutput did
type WriteResult struct {
	Path       string // validated target path
	Written    string // file actually written, empty if nothing was written
	Resolution ConflictResolution
	Unchanged  bool   // target already held the message
	Warning    string // git exposure warning, empty if none
}

// Option configures a DarkCrypt
type Option func(*DarkCrypt)

// WithProvider replaces the crypto provider
func WithProvider(p envelope.Provider) Option {
	return func(d *DarkCrypt) { d.provider = p }
}

// WithClipboard replaces the system clipboard
func WithClipboard(b clipboard.Backend) Option {
	return func(d *DarkCrypt) { d.clipBackend = b }
}

// WithWorkDir sets the directory output files are confined to
func WithWorkDir(dir string) Option {
	return func(d *DarkCrypt) { d.workDir = dir }
}

// WithTerminal sets where conflict prompts go
func WithTerminal(t *Terminal) Option {
	return func(d *DarkCrypt) { d.term = t }
}

// DarkCrypt ties the codec, the journal, the clipboard and share links together
type DarkCrypt struct {
	cfg   *config.Config
	log   *logger.Logger
	codec *envelope.Codec

	provider    envelope.Provider
	clipBackend clipboard.Backend
	clip        *clipboard.Clipboard
	workDir     string
	validator   *security.PathValidator
	term        *Terminal
}

// New creates a DarkCrypt. It fails with envelope.ErrCryptoUnavailable if
// the crypto provider does not work.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*DarkCrypt, error) {
	if log == nil {
		log = logger.Nop()
	}

	d := &DarkCrypt{
		cfg: cfg,
		log: log.With("core"),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.provider == nil {
		d.provider = crypto.NewProvider()
	}
	codec, err := envelope.New(d.provider)
	if err != nil {
		return nil, err
	}
	d.codec = codec

	if d.clipBackend == nil {
		if b, err := clipboard.System(); err == nil {
			d.clipBackend = b
		}
	}
	d.clip = clipboard.New(d.clipBackend, cfg.ClipboardTTL, log)

	if d.workDir == "" {
		if d.workDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	if d.term == nil {
		d.term = StdTerminal()
	}

	return d, nil
}

// Close releases resources held by the DarkCrypt instance
func (d *DarkCrypt) Close() error {
	if d.validator != nil {
		return d.validator.Close()
	}
	return nil
}

// Seal encrypts plaintext and optionally links, journals and copies the result
func (d *DarkCrypt) Seal(ctx context.Context, plaintext, passphrase []byte, opts SealOptions) (*SealResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	payload, err := d.codec.Encrypt(string(plaintext), string(passphrase))
	if err != nil {
		d.log.Debug().Str("kind", envelope.KindOf(err)).Msg("encrypt failed")
		return nil, err
	}
	result := &SealResult{Payload: payload}

	if opts.Link {
		link, err := share.BuildLink(d.cfg.Origin, payload)
		if err != nil {
			return nil, err
		}
		result.Link = link
	}

	if opts.Save {
		entry, err := d.record(storage.Entry{
			Label:     opts.Label,
			Payload:   payload,
			Direction: storage.DirectionSent,
		})
		if err != nil {
			return nil, err
		}
		result.ID = entry.ID
	}

	if opts.Copy {
		text := payload
		if result.Link != "" {
			text = result.Link
		}
		if err := d.clip.Copy(ctx, text); err != nil {
			d.log.Warn().Err(err).Msg("clipboard copy failed")
			result.CopyErr = err
		} else {
			result.Copied = true
		}
	}

	d.log.Debug().
		Int("payload_len", len(payload)).
		Str("id", result.ID).
		Dur("took", time.Since(start)).
		Msg("sealed")
	return result, nil
}

// Open decrypts input, which may be a payload, a share link, a "#fragment"
// or a journal ID.
func (d *DarkCrypt) Open(ctx context.Context, input string, passphrase []byte, opts OpenOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()

	payload, fromJournal, err := d.resolvePayload(ctx, input)
	if err != nil {
		return "", err
	}

	plaintext, err := d.codec.Decrypt(payload, string(passphrase))
	if err != nil {
		d.log.Debug().Str("kind", envelope.KindOf(err)).Int("payload_len", len(payload)).Msg("decrypt failed")
		return "", err
	}

	if opts.Save && !fromJournal {
		entry, err := d.record(storage.Entry{
			Label:     opts.Label,
			Payload:   payload,
			Direction: storage.DirectionReceived,
		})
		if err != nil {
			return "", err
		}
		d.log.Debug().Str("id", entry.ID).Msg("payload journaled")
	}

	d.log.Debug().
		Int("payload_len", len(payload)).
		Dur("took", time.Since(start)).
		Msg("opened")
	return plaintext, nil
}

// Link returns the share link for a payload after checking its format
func (d *DarkCrypt) Link(payload string) (string, error) {
	payload, err := share.ExtractPayload(payload)
	if err != nil {
		return "", envelope.ErrEmptyPayload
	}
	if _, err := envelope.ParsePayload(payload); err != nil {
		return "", err
	}
	return share.BuildLink(d.cfg.Origin, payload)
}

// WaitClipboard blocks until a pending clipboard clear has run
func (d *DarkCrypt) WaitClipboard(ctx context.Context) error {
	return d.clip.Wait(ctx)
}

// ClipboardTTL returns how long copied text stays on the clipboard
func (d *DarkCrypt) ClipboardTTL() time.Duration {
	return d.clip.TTL()
}

// resolvePayload turns a payload, link, fragment or journal ID into a
// payload. It reports whether the payload came from the journal.
func (d *DarkCrypt) resolvePayload(ctx context.Context, input string) (string, bool, error) {
	input = strings.TrimSpace(input)

	if !share.LooksLikePayload(input) && !share.IsLink(input) && !strings.HasPrefix(input, "#") {
		if id, ok := parseJournalID(input); ok {
			entry, err := d.Show(ctx, id)
			if err != nil {
				return "", false, err
			}
			return entry.Payload, true, nil
		}
	}

	payload, err := share.ExtractPayload(input)
	if err != nil {
		return "", false, envelope.ErrEmptyPayload
	}
	return payload, false, nil
}

// parseJournalID accepts full or shortened hex IDs ("2a" for "0000002a")
func parseJournalID(s string) (string, bool) {
	if s == "" || len(s) > 8 {
		return "", false
	}
	seq, err := strconv.ParseUint(s, 16, 64)
	if err != nil || seq == 0 {
		return "", false
	}
	return storage.FormatID(seq), true
}

// WriteOutput writes plaintext to path inside the working directory. An
// existing, different file is resolved with strategy.
func (d *DarkCrypt) WriteOutput(ctx context.Context, path string, plaintext string, strategy MergeStrategy) (*WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	validator, err := d.pathValidator()
	if err != nil {
		return nil, err
	}

	validPath, err := validator.Validate(path)
	if err != nil {
		return nil, fmt.Errorf("invalid output path %s: %w", path, err)
	}
	result := &WriteResult{Path: validPath}

	payloadData := []byte(plaintext)
	defer crypto.ClearBytes(payloadData)

	exists, err := validator.Exists(validPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", validPath, err)
	}

	target := validPath
	result.Resolution = ResolutionUsePayload

	if exists {
		localData, err := validator.ReadFile(validPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", validPath, err)
		}
		defer crypto.ClearBytes(localData)

		if CompareFiles(localData, payloadData) {
			result.Unchanged = true
			result.Resolution = ResolutionKeepLocal
			d.log.Debug().Str("path", validPath).Msg("output unchanged")
			return result, nil
		}

		conflict, err := HandleConflict(d.term, validPath, localData, payloadData, strategy)
		if err != nil {
			return nil, err
		}
		result.Resolution = conflict.Resolution

		switch conflict.Resolution {
		case ResolutionKeepLocal, ResolutionSkip:
			d.log.Debug().Str("path", validPath).Stringer("resolution", conflict.Resolution).Msg("output not written")
			return result, nil
		case ResolutionEditMerged:
			crypto.ClearBytes(payloadData)
			payloadData = conflict.MergedData
		case ResolutionKeepBoth:
			if target, err = d.freeCopyPath(validator, validPath); err != nil {
				return nil, err
			}
		case ResolutionUsePayload:
		}
	}

	if err := validator.WriteFile(target, payloadData, FilePermSecure); err != nil {
		return nil, fmt.Errorf("cannot write %s: %w", target, err)
	}
	result.Written = target

	exposure := git.CheckExposure(validator.Dir(), target)
	result.Warning = git.FormatWarning(target, exposure)

	d.log.Debug().
		Str("path", target).
		Stringer("resolution", result.Resolution).
		Bool("git_risky", exposure.Risky()).
		Msg("output written")
	return result, nil
}

// freeCopyPath finds the first unused FILE.from-payload[.N] name
func (d *DarkCrypt) freeCopyPath(validator *security.PathValidator, path string) (string, error) {
	candidate := path + FromPayloadSuffix
	for i := 1; i <= MaxPayloadCopies; i++ {
		exists, err := validator.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("cannot access %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%s.%d", path, FromPayloadSuffix, i)
	}
	return "", fmt.Errorf("%w: %s (max %d)", ErrTooManyCopies, path, MaxPayloadCopies)
}

// Diff returns a unified diff from the local file at path to plaintext.
// A missing file diffs as empty. Nothing is written.
func (d *DarkCrypt) Diff(ctx context.Context, path string, plaintext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	validator, err := d.pathValidator()
	if err != nil {
		return "", err
	}

	validPath, err := validator.Validate(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}

	var localData []byte
	exists, err := validator.Exists(validPath)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", validPath, err)
	}
	if exists {
		if localData, err = validator.ReadFile(validPath); err != nil {
			return "", fmt.Errorf("cannot read %s: %w", validPath, err)
		}
		defer crypto.ClearBytes(localData)
	}

	return GenerateUnifiedDiff(filepath.ToSlash(validPath), localData, []byte(plaintext))
}

func (d *DarkCrypt) pathValidator() (*security.PathValidator, error) {
	if d.validator != nil {
		return d.validator, nil
	}
	validator, err := security.New(d.workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path validator: %w", err)
	}
	d.validator = validator
	return validator, nil
}

// History lists journal entries, oldest first. A journal that was never
// created is empty.
func (d *DarkCrypt) History(ctx context.Context) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := d.openJournal(false)
	if errors.Is(err, ErrNoJournal) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.List()
}

// Show returns a single journal entry
func (d *DarkCrypt) Show(ctx context.Context, id string) (*storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if normalized, ok := parseJournalID(id); ok {
		id = normalized
	}

	db, err := d.openJournal(false)
	if errors.Is(err, ErrNoJournal) {
		return nil, fmt.Errorf("%w: %s", storage.ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.Get(id)
}

// Forget removes journal entries. It keeps going past missing IDs and
// returns the ones it removed together with the joined errors.
func (d *DarkCrypt) Forget(ctx context.Context, ids []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no journal IDs given")
	}

	db, err := d.openJournal(false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var removed []string
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if normalized, ok := parseJournalID(id); ok {
			id = normalized
		}
		if err := db.Delete(id); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, id)
	}

	d.log.Debug().Strs("ids", removed).Msg("journal entries removed")
	return removed, errors.Join(errs...)
}

// Compact rewrites the journal file to reclaim space from removed entries
// and returns the number of entries left.
func (d *DarkCrypt) Compact(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	db, err := d.openJournal(false)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := db.Compact(); err != nil {
		return 0, fmt.Errorf("failed to compact journal: %w", err)
	}
	return db.Count()
}

func (d *DarkCrypt) record(entry storage.Entry) (storage.Entry, error) {
	db, err := d.openJournal(true)
	if err != nil {
		return storage.Entry{}, err
	}
	defer db.Close()

	return db.Put(entry)
}

// openJournal opens the journal database. With create unset a missing
// file yields ErrNoJournal instead of an empty database on disk.
func (d *DarkCrypt) openJournal(create bool) (*storage.Storage, error) {
	path := d.cfg.JournalPath
	if path == "" {
		return nil, ErrJournalDisabled
	}

	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, ErrNoJournal
		}
	}

	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}

	if !create {
		initialized, err := db.IsInitialized()
		if err != nil || !initialized {
			db.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read journal: %w", err)
			}
			return nil, ErrNoJournal
		}
		return db, nil
	}

	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	return db, nil
}

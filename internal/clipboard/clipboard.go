// Package clipboard copies payloads and share links to the system clipboard
// and wipes them again after a delay.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/illarion/darkcrypt/internal/logger"
)

const DefaultTTL = 20 * time.Second

var ErrUnavailable = errors.New("clipboard unavailable")

// Backend is the raw clipboard
type Backend interface {
	WriteAll(text string) error
	ReadAll() (string, error)
}

type systemBackend struct{}

func (systemBackend) WriteAll(text string) error { return clipboard.WriteAll(text) }
func (systemBackend) ReadAll() (string, error)   { return clipboard.ReadAll() }

// System returns the OS clipboard, or ErrUnavailable when no clipboard
// utility is installed (e.g. headless Linux without xclip/xsel/wl-copy).
func System() (Backend, error) {
	if clipboard.Unsupported {
		return nil, ErrUnavailable
	}
	return systemBackend{}, nil
}

// Clipboard writes text and schedules a best-effort clear
type Clipboard struct {
	backend Backend
	ttl     time.Duration
	log     *logger.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a Clipboard. ttl <= 0 disables the automatic clear.
func New(backend Backend, ttl time.Duration, log *logger.Logger) *Clipboard {
	if log == nil {
		log = logger.Nop()
	}
	return &Clipboard{
		backend: backend,
		ttl:     ttl,
		log:     log.With("clipboard"),
	}
}

// TTL returns the delay after which copied text is cleared
func (c *Clipboard) TTL() time.Duration {
	return c.ttl
}

// Copy writes text to the clipboard. A clear pending from an earlier Copy
// is cancelled. The new clear fires after the TTL or as soon as ctx is done,
// whichever comes first.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	if c.backend == nil {
		return ErrUnavailable
	}
	if err := c.backend.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard copy failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.ttl <= 0 {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done

	go c.clearAfter(ctx, text, stop, done)

	c.log.Debug().Dur("ttl", c.ttl).Int("len", len(text)).Msg("copied, clear scheduled")
	return nil
}

// Wait blocks until the most recently scheduled clear has finished or was
// superseded, or ctx is done. It returns immediately if nothing is pending.
func (c *Clipboard) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Clipboard) clearAfter(ctx context.Context, text string, stop, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(c.ttl)
	defer timer.Stop()

	select {
	case <-stop:
		return
	case <-timer.C:
	case <-ctx.Done():
	}

	c.clear(text)
}

// clear empties the clipboard only if it still holds what we put there
func (c *Clipboard) clear(text string) {
	current, err := c.backend.ReadAll()
	if err != nil {
		c.log.Debug().Err(err).Msg("cannot read clipboard, skipping clear")
		return
	}
	if current != text {
		c.log.Debug().Msg("clipboard changed since copy, leaving it alone")
		return
	}
	if err := c.backend.WriteAll(""); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear clipboard")
		return
	}
	c.log.Debug().Msg("clipboard cleared")
}

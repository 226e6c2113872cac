package engines

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lector/reading"
)

// Fallback tries a fixed engine order on every call. Nothing is
// sticky: an engine that was down for one sentence is probed again on
// the next, so a recovered primary takes over without intervention.
type Fallback struct {
	chain []reading.Engine
}

// NewFallback builds a chain trying engines in the given order.
func NewFallback(chain ...reading.Engine) *Fallback {
	return &Fallback{chain: chain}
}

// Name lists the chain members in order.
func (f *Fallback) Name() string {
	names := make([]string, len(f.chain))
	for i, e := range f.chain {
		names[i] = e.Name()
	}
	return strings.Join(names, "+")
}

// Available reports whether any chain member can synthesize.
func (f *Fallback) Available() bool {
	for _, e := range f.chain {
		if e.Available() {
			return true
		}
	}
	return false
}

// Synthesize walks the chain until an available engine succeeds.
// Cancellation stops the walk instead of cascading to the next
// engine.
func (f *Fallback) Synthesize(ctx context.Context, text string) (*reading.Audio, error) {
	var lastErr error
	for _, e := range f.chain {
		if !e.Available() {
			continue
		}
		audio, err := e.Synthesize(ctx, text)
		if err == nil {
			return audio, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		log.Warn("speech engine failed, trying next", "engine", e.Name(), "err", err)
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: no engine in chain %s", reading.ErrEngineNotAvailable, f.Name())
}

// Close closes every chain member, returning the first error.
func (f *Fallback) Close() error {
	var firstErr error
	for _, e := range f.chain {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package engines

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgnsrekt/lector/reading"
)

// Mock synthesizes silence at roughly spoken pace. It backs the
// "mock" config engine so the reader can run without piper or a
// network, and gives tests a scriptable backend.
type Mock struct {
	mu        sync.Mutex
	delay     time.Duration
	script    []error
	calls     []string
	available bool
	closed    bool
}

// NewMock returns a mock engine with a small synthesis delay.
func NewMock() *Mock {
	return &Mock{
		delay:     100 * time.Millisecond,
		available: true,
	}
}

// Name implements reading.Engine.
func (m *Mock) Name() string { return "mock" }

// Available reports the scripted availability.
func (m *Mock) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available && !m.closed
}

// Synthesize waits the configured delay, then returns silence sized
// to the estimated speaking time. Scripted outcomes are consumed in
// order; a nil entry means success.
func (m *Mock) Synthesize(ctx context.Context, text string) (*reading.Audio, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, reading.ErrEngineShutdown
	}
	m.calls = append(m.calls, text)
	var scripted error
	if len(m.script) > 0 {
		scripted = m.script[0]
		m.script = m.script[1:]
	}
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("mock: %w", ctx.Err())
		}
	}
	if scripted != nil {
		return nil, scripted
	}

	frames := int(EstimateDuration(text).Seconds() * float64(reading.SampleRate))
	if frames < 1 {
		frames = 1
	}
	return reading.NewAudio(make([]byte, frames*reading.BytesPerSample)), nil
}

// Close implements reading.Engine.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetDelay overrides the simulated synthesis time.
func (m *Mock) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetAvailable scripts the availability probe.
func (m *Mock) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = ok
}

// Script queues per-call outcomes; nil entries succeed.
func (m *Mock) Script(outcomes ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, outcomes...)
}

// Calls returns the texts synthesized so far.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

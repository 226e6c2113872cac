package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgnsrekt/lector/reading"
)

// MockPlayer implements reading.Player without an audio device. In
// auto mode every stream completes as soon as it starts; otherwise
// the caller drives completion with FinishCurrent. It also serves as
// the silent fallback when the device cannot be opened.
type MockPlayer struct {
	mu       sync.Mutex
	auto     bool
	playing  bool
	paused   bool
	closed   bool
	done     chan struct{}
	current  *reading.Audio
	started  time.Time
	pausedAt time.Duration

	plays   int
	pauses  int
	resumes int
	stops   int
}

// NewMockPlayer returns a mock player. With auto set, streams finish
// immediately.
func NewMockPlayer(auto bool) *MockPlayer {
	done := make(chan struct{})
	close(done)
	return &MockPlayer{auto: auto, done: done}
}

// Play implements reading.Player.
func (m *MockPlayer) Play(a *reading.Audio) error {
	if err := a.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("%w: player closed", reading.ErrInvalidState)
	}
	m.closeDoneLocked()

	m.current = a
	m.playing = true
	m.paused = false
	m.started = time.Now()
	m.pausedAt = 0
	m.plays++
	m.done = make(chan struct{})

	if m.auto {
		m.playing = false
		m.closeDoneLocked()
	}
	return nil
}

// Pause implements reading.Player.
func (m *MockPlayer) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing || m.paused {
		return reading.ErrNotPlaying
	}
	m.paused = true
	m.pausedAt = m.elapsedLocked()
	m.pauses++
	return nil
}

// Resume implements reading.Player.
func (m *MockPlayer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing || !m.paused {
		return reading.ErrNotPaused
	}
	m.paused = false
	m.started = time.Now().Add(-m.pausedAt)
	m.resumes++
	return nil
}

// Stop implements reading.Player.
func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = false
	m.current = nil
	m.stops++
	m.closeDoneLocked()
	return nil
}

// Playing implements reading.Player.
func (m *MockPlayer) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.paused
}

// Position implements reading.Player with wall-clock tracking.
func (m *MockPlayer) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return 0
	}
	if m.paused {
		return m.pausedAt
	}
	return m.elapsedLocked()
}

// Done implements reading.Player.
func (m *MockPlayer) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Close implements reading.Player.
func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = false
	m.closed = true
	m.closeDoneLocked()
	return nil
}

// FinishCurrent completes the active stream as if the device drained
// it.
func (m *MockPlayer) FinishCurrent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return
	}
	m.playing = false
	m.paused = false
	m.closeDoneLocked()
}

// Current returns the audio most recently handed to Play, or nil
// after a stop.
func (m *MockPlayer) Current() *reading.Audio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Counts reports how often each operation ran.
func (m *MockPlayer) Counts() (plays, pauses, resumes, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays, m.pauses, m.resumes, m.stops
}

func (m *MockPlayer) elapsedLocked() time.Duration {
	elapsed := time.Since(m.started)
	if m.current != nil && elapsed > m.current.Duration {
		elapsed = m.current.Duration
	}
	return elapsed
}

func (m *MockPlayer) closeDoneLocked() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

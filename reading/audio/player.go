// Package audio plays synthesized PCM through the system audio
// device. One oto context serves the whole process; oto cannot open a
// second one.
package audio

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/dgnsrekt/lector/reading"
)

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   reading.SampleRate,
			ChannelCount: reading.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   deviceBuffer(runtime.GOOS),
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("open audio device: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// deviceBuffer picks the device buffer length. macOS crackles with a
// short buffer; elsewhere a short one keeps pause and stop snappy.
func deviceBuffer(goos string) time.Duration {
	if goos == "darwin" {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// Player implements reading.Player on oto. A single goroutine watches
// the active stream and closes its done channel when the device
// drains it.
type Player struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	stream *trackingReader
	done   chan struct{}
	paused bool
	closed bool
	gen    uint64
}

// NewPlayer opens the process-wide audio device. It fails when no
// output device is usable; callers can still read silently with a
// MockPlayer.
func NewPlayer() (*Player, error) {
	ctx, err := sharedContext()
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	close(done)
	return &Player{ctx: ctx, done: done}, nil
}

// Play starts the given audio, replacing any current stream.
func (p *Player) Play(a *reading.Audio) error {
	if err := a.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: player closed", reading.ErrInvalidState)
	}
	p.stopLocked()

	stream := newTrackingReader(a)
	player := p.ctx.NewPlayer(stream)

	p.player = player
	p.stream = stream
	p.done = make(chan struct{})
	p.paused = false
	p.gen++

	player.Play()
	go p.watch(player, stream, p.done, p.gen)
	return nil
}

// watch closes done once the device has drained the stream. oto
// reports IsPlaying false while paused too, so draining is confirmed
// from the reader.
func (p *Player) watch(player *oto.Player, stream *trackingReader, done chan struct{}, gen uint64) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.gen != gen {
			// Superseded; whoever bumped the generation closed done.
			p.mu.Unlock()
			return
		}
		if !p.paused && stream.exhausted() && !player.IsPlaying() {
			p.player = nil
			p.stream = nil
			if err := player.Close(); err != nil {
				log.Debug("audio player close", "err", err)
			}
			close(done)
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

// Pause suspends the current stream, keeping its position.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil || p.paused {
		return reading.ErrNotPlaying
	}
	p.player.Pause()
	p.paused = true
	return nil
}

// Resume continues a paused stream.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil || !p.paused {
		return reading.ErrNotPaused
	}
	p.player.Play()
	p.paused = false
	return nil
}

// Stop discards the current stream and closes its done channel.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	if p.player != nil {
		p.player.Pause()
		if err := p.player.Close(); err != nil {
			log.Debug("audio player close", "err", err)
		}
		p.player = nil
		p.stream = nil
	}
	p.paused = false
	p.gen++
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

// Playing reports whether audio is currently audible.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && !p.paused
}

// Position reports how much of the current stream the device has
// consumed.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return 0
	}
	return p.stream.position()
}

// Done returns the channel closed when the current stream finishes or
// is stopped. Before any Play it is already closed.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Close stops playback. The device context is process wide and stays
// open; oto does not expose closing it.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.stopLocked()
	p.closed = true
	return nil
}

// trackingReader hands PCM to the device while counting what was
// consumed, so position reflects what has nearly been heard.
type trackingReader struct {
	mu   sync.Mutex
	data []byte
	off  int
	rate int // bytes per second
}

func newTrackingReader(a *reading.Audio) *trackingReader {
	return &trackingReader{
		data: a.Data,
		rate: a.SampleRate * a.Channels * reading.BitDepth / 8,
	}
}

func (r *trackingReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}

func (r *trackingReader) position() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rate <= 0 {
		return 0
	}
	return time.Duration(r.off) * time.Second / time.Duration(r.rate)
}

func (r *trackingReader) exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.off >= len(r.data)
}

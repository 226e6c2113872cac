package reading

import (
	"context"
	"fmt"
	"time"
)

// PCM format shared by every engine and the player. Engines that
// produce something else resample before returning.
const (
	// SampleRate is the audio sample rate in Hz.
	SampleRate = 22050
	// Channels is the number of audio channels (1 = mono).
	Channels = 1
	// BitDepth is the bit depth per sample.
	BitDepth = 16
	// BytesPerSample is the number of bytes per sample frame.
	BytesPerSample = BitDepth / 8 * Channels
)

// Engine converts sentence text to audio. Implementations live in
// reading/engines; they must be safe for sequential use by a single
// controller goroutine and honor context cancellation mid-synthesis.
type Engine interface {
	// Name identifies the engine in config and logs.
	Name() string

	// Available reports whether the engine can synthesize right now
	// (binary on PATH, network reachable).
	Available() bool

	// Synthesize converts text to PCM audio. It returns promptly with
	// ctx.Err() wrapped when the context is cancelled.
	Synthesize(ctx context.Context, text string) (*Audio, error)

	// Close releases engine resources. Synthesize must not be called
	// after Close.
	Close() error
}

// Player plays PCM audio. Playback is asynchronous: Play returns once
// the stream is started and Done reports completion.
type Player interface {
	// Play starts playing the given audio, replacing any current stream.
	Play(audio *Audio) error

	// Pause temporarily stops playback, keeping position.
	Pause() error

	// Resume continues playback from the paused position.
	Resume() error

	// Stop halts playback and discards the stream.
	Stop() error

	// Playing reports whether audio is currently audible.
	Playing() bool

	// Position returns how far into the current stream playback is.
	Position() time.Duration

	// Done returns a channel closed when the current stream finishes
	// or is stopped.
	Done() <-chan struct{}

	// Close releases the audio device.
	Close() error
}

// Audio is synthesized PCM data, signed 16-bit little-endian.
type Audio struct {
	Data       []byte        // Raw PCM bytes
	SampleRate int           // Sample rate in Hz
	Channels   int           // Number of channels
	Duration   time.Duration // Playback duration
}

// NewAudio wraps raw PCM bytes in the default format, computing the
// duration from the data length.
func NewAudio(data []byte) *Audio {
	a := &Audio{
		Data:       data,
		SampleRate: SampleRate,
		Channels:   Channels,
	}
	a.Duration = a.computedDuration()
	return a
}

// Validate checks that the audio carries playable PCM data.
func (a *Audio) Validate() error {
	if a == nil || len(a.Data) == 0 {
		return fmt.Errorf("%w: no data", ErrInvalidAudioFormat)
	}
	if a.SampleRate <= 0 || a.Channels <= 0 {
		return fmt.Errorf("%w: rate=%d channels=%d",
			ErrInvalidAudioFormat, a.SampleRate, a.Channels)
	}
	if len(a.Data)%(BitDepth/8*a.Channels) != 0 {
		return fmt.Errorf("%w: %d bytes not sample aligned",
			ErrInvalidAudioFormat, len(a.Data))
	}
	return nil
}

func (a *Audio) computedDuration() time.Duration {
	if a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}
	frames := len(a.Data) / (BitDepth / 8 * a.Channels)
	return time.Duration(float64(frames) / float64(a.SampleRate) * float64(time.Second))
}

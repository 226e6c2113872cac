package engines

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/lector/internal/cache"
	"github.com/dgnsrekt/lector/reading"
)

// Google's translate endpoint tolerates modest request rates. Stay
// well under what rapid paging would trigger; cached sentences replay
// without spending tokens.
const gttsRequestsPerMinute = 30

// GTTS speaks through gtts-cli, converting its MP3 output to PCM with
// ffmpeg. Every synthesis is a network round trip, so results go
// through the audio cache and requests are rate limited.
type GTTS struct {
	language string
	speed    float64
	limiter  *rate.Limiter
	cache    *cache.Cache
}

// NewGTTS returns a gtts-cli backed engine for the given language
// code. A nil cache disables caching.
func NewGTTS(language string, speed float64, c *cache.Cache) *GTTS {
	if language == "" {
		language = "en"
	}
	return &GTTS{
		language: language,
		speed:    speed,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/gttsRequestsPerMinute), 2),
		cache:    c,
	}
}

// Name implements reading.Engine.
func (g *GTTS) Name() string { return "gtts" }

// Available probes PATH for both halves of the pipeline.
func (g *GTTS) Available() bool {
	_, _, err := gttsBinaries()
	return err == nil
}

// Synthesize renders text through gtts-cli and ffmpeg. Cache hits
// return without touching the network or the limiter.
func (g *GTTS) Synthesize(ctx context.Context, text string) (*reading.Audio, error) {
	key := cache.Key{Engine: g.Name(), Voice: g.language, Speed: g.speed, Text: text}
	if g.cache != nil {
		if data, ok := g.cache.Get(key); ok {
			return reading.NewAudio(data), nil
		}
	}

	gttsBin, ffmpegBin, err := gttsBinaries()
	if err != nil {
		return nil, err
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gtts: %w", err)
	}

	mp3, err := g.fetchMP3(ctx, gttsBin, text)
	if err != nil {
		return nil, err
	}
	defer os.Remove(mp3)

	data, err := g.decodeToPCM(ctx, ffmpegBin, mp3)
	if err != nil {
		return nil, err
	}
	log.Debug("gtts synthesis complete", "bytes", len(data))

	if g.cache != nil {
		g.cache.Put(key, data)
	}
	return reading.NewAudio(data), nil
}

// Close implements reading.Engine. Nothing persists between calls.
func (g *GTTS) Close() error { return nil }

// fetchMP3 runs gtts-cli into a temp file and returns its path. The
// caller removes the file.
func (g *GTTS) fetchMP3(ctx context.Context, gttsBin, text string) (string, error) {
	f, err := os.CreateTemp("", "lector-gtts-*.mp3")
	if err != nil {
		return "", fmt.Errorf("gtts temp file: %w", err)
	}
	path := f.Name()
	f.Close()

	cmd := exec.CommandContext(ctx, gttsBin, text, "--output", path, "--lang", g.language)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		os.Remove(path)
		if ctx.Err() != nil {
			return "", fmt.Errorf("gtts: %w", ctx.Err())
		}
		return "", fmt.Errorf("%w: gtts-cli: %v: %s",
			reading.ErrSynthesisFailed, err, firstLine(stderr.String()))
	}
	return path, nil
}

// decodeToPCM converts the MP3 to the shared PCM format, applying the
// speed change with ffmpeg's atempo filter.
func (g *GTTS) decodeToPCM(ctx context.Context, ffmpegBin, mp3 string) ([]byte, error) {
	args := []string{
		"-i", mp3,
		"-f", "s16le",
		"-ar", fmt.Sprint(reading.SampleRate),
		"-ac", fmt.Sprint(reading.Channels),
	}
	if g.speed > 0 && g.speed != 1.0 {
		// atempo accepts 0.5 to 2.0; clamp rather than chain filters.
		tempo := g.speed
		if tempo < 0.5 {
			tempo = 0.5
		} else if tempo > 2.0 {
			tempo = 2.0
		}
		args = append(args, "-filter:a", fmt.Sprintf("atempo=%.2f", tempo))
	}
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, ffmpegBin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("gtts: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s",
			reading.ErrSynthesisFailed, err, firstLine(stderr.String()))
	}

	data := stdout.Bytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no audio", reading.ErrSynthesisFailed)
	}
	return data, nil
}

func gttsBinaries() (gtts, ffmpeg string, err error) {
	gtts, err = exec.LookPath("gtts-cli")
	if err != nil {
		return "", "", fmt.Errorf("%w: gtts-cli not on PATH", reading.ErrEngineNotAvailable)
	}
	ffmpeg, err = exec.LookPath("ffmpeg")
	if err != nil {
		return "", "", fmt.Errorf("%w: ffmpeg not on PATH", reading.ErrEngineNotAvailable)
	}
	return gtts, ffmpeg, nil
}

package engines

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lector/internal/cache"
	"github.com/dgnsrekt/lector/reading"
)

// Piper speaks through the piper binary, one process per sentence.
// Writing the text and closing stdin makes piper synthesize and exit,
// so the process lifetime is exactly one synthesis and cancellation
// only has to kill it.
type Piper struct {
	model string
	speed float64
	cache *cache.Cache
}

// NewPiper returns a piper-backed engine speaking with the given voice
// model. A nil cache disables caching.
func NewPiper(model string, speed float64, c *cache.Cache) *Piper {
	return &Piper{model: model, speed: speed, cache: c}
}

// Name implements reading.Engine.
func (p *Piper) Name() string { return "piper" }

// Available reports whether the binary and the voice model are both
// reachable right now.
func (p *Piper) Available() bool {
	if p.model == "" || findPiper() == "" {
		return false
	}
	_, err := os.Stat(p.model)
	return err == nil
}

// Synthesize runs one piper process for text and returns its raw PCM
// output.
func (p *Piper) Synthesize(ctx context.Context, text string) (*reading.Audio, error) {
	key := cache.Key{Engine: p.Name(), Voice: p.model, Speed: p.speed, Text: text}
	if p.cache != nil {
		if data, ok := p.cache.Get(key); ok {
			return reading.NewAudio(data), nil
		}
	}

	binary := findPiper()
	if binary == "" {
		return nil, fmt.Errorf("%w: piper binary not found", reading.ErrEngineNotAvailable)
	}
	if _, err := os.Stat(p.model); err != nil {
		return nil, fmt.Errorf("%w: voice model: %v", reading.ErrEngineNotAvailable, err)
	}

	args := []string{"--model", p.model, "--output-raw"}
	// The sidecar json is optional for piper.
	if sidecar := p.model + ".json"; fileExists(sidecar) {
		args = append(args, "--config", sidecar)
	}
	if p.speed > 0 && p.speed != 1.0 {
		// piper scales phoneme length, so slower speech is a larger scale.
		args = append(args, "--length-scale", fmt.Sprintf("%.2f", 1.0/p.speed))
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	// Closing stdin signals EOF, which is what makes piper process the
	// text and exit.
	cmd.Stdin = strings.NewReader(text + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Don't hang on a forked child holding the pipes after the kill.
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("piper: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: piper: %v: %s",
			reading.ErrSynthesisFailed, err, firstLine(stderr.String()))
	}

	data := stdout.Bytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: piper produced no audio", reading.ErrSynthesisFailed)
	}

	audio := reading.NewAudio(data)
	log.Debug("piper synthesis complete", "bytes", len(data), "duration", audio.Duration)

	if p.cache != nil {
		p.cache.Put(key, data)
	}
	return audio, nil
}

// Close implements reading.Engine. Nothing persists between calls.
func (p *Piper) Close() error { return nil }

// findPiper checks PATH and the usual install locations.
func findPiper() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		"piper",
		"/usr/local/bin/piper",
		"/usr/bin/piper",
		filepath.Join(home, ".local", "bin", "piper"),
		filepath.Join(home, "bin", "piper"),
	}
	for _, loc := range locations {
		if path, err := exec.LookPath(loc); err == nil {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

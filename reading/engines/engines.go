// Package engines provides the speech backends behind the reading
// package's Engine interface. Every engine returns PCM s16le at the
// shared sample rate and channel count; backends that produce
// something else convert before returning.
package engines

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dgnsrekt/lector/internal/cache"
	"github.com/dgnsrekt/lector/reading"
)

// Config selects and tunes an engine chain.
type Config struct {
	// Engine is a name or a comma-separated list of names. A list
	// becomes a fallback chain tried in order on every synthesis.
	Engine string

	// Voice is the piper voice model path.
	Voice string

	// Speed is the speaking speed multiplier, 1.0 = normal.
	Speed float64

	// Language is the gtts language code.
	Language string

	// Cache stores synthesized audio across calls and restarts. May be
	// nil to disable caching.
	Cache *cache.Cache
}

// New builds the engine named by cfg.Engine. Known names are "piper",
// "gtts" and "mock"; comma-separated names build a fallback chain in
// the given order.
func New(cfg Config) (reading.Engine, error) {
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}

	var chain []reading.Engine
	for _, name := range strings.Split(cfg.Engine, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		eng, err := newByName(name, cfg)
		if err != nil {
			for _, built := range chain {
				built.Close()
			}
			return nil, err
		}
		chain = append(chain, eng)
	}

	switch len(chain) {
	case 0:
		return nil, fmt.Errorf("no speech engine named in %q", cfg.Engine)
	case 1:
		return chain[0], nil
	default:
		return NewFallback(chain...), nil
	}
}

func newByName(name string, cfg Config) (reading.Engine, error) {
	switch name {
	case "piper":
		return NewPiper(cfg.Voice, cfg.Speed, cfg.Cache), nil
	case "gtts":
		return NewGTTS(cfg.Language, cfg.Speed, cfg.Cache), nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown speech engine %q", name)
	}
}

// Speech pacing baseline for duration estimates.
const baseWordsPerMinute = 150.0

var (
	numberRuns = regexp.MustCompile(`\d+`)
	pausePunct = regexp.MustCompile(`[,;:\-()]`)
)

// EstimateDuration predicts how long text takes to speak, for pacing
// decisions when a backend cannot report a duration. The base rate
// slows for numbers, pause punctuation and long words.
func EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}

	rate := baseWordsPerMinute * (1.0 - complexity(text)*0.2)
	seconds := float64(words) * 60.0 / rate
	return time.Duration(seconds * float64(time.Second))
}

func complexity(text string) float64 {
	score := 0.0
	score += float64(len(numberRuns.FindAllString(text, -1))) * 0.02
	score += float64(len(pausePunct.FindAllString(text, -1))) * 0.01

	words := strings.Fields(text)
	long := 0
	for _, word := range words {
		if len(word) > 10 {
			long++
		}
	}
	score += float64(long) / float64(len(words)+1) * 0.1

	// Cap at a 10% slowdown overall.
	if score > 0.5 {
		score = 0.5
	}
	return score
}

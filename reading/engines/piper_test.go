package engines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/lector/internal/cache"
	"github.com/dgnsrekt/lector/reading"
)

// installFakePiper puts a shell script named piper at the front of
// PATH, keeping the system bin dirs so the script's own tools resolve.
func installFakePiper(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binaries are shell scripts")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "piper"), []byte(script), 0o755); err != nil {
		t.Fatalf("write fake piper: %v", err)
	}
	t.Setenv("PATH", dir+":/bin:/usr/bin")
}

func writeVoiceModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "en_US-lessac-medium.onnx")
	if err := os.WriteFile(path, []byte("model weights"), 0o644); err != nil {
		t.Fatalf("write voice model: %v", err)
	}
	return path
}

func TestPiperSynthesizeRunsBinary(t *testing.T) {
	out := t.TempDir()
	argsFile := filepath.Join(out, "args")
	stdinFile := filepath.Join(out, "stdin")
	installFakePiper(t, fmt.Sprintf(
		"#!/bin/sh\nprintf '%%s\\n' \"$@\" > \"%s\"\ncat > \"%s\"\nprintf 'abcdabcd'\n",
		argsFile, stdinFile))
	model := writeVoiceModel(t)

	p := NewPiper(model, 1.0, nil)
	if !p.Available() {
		t.Fatal("Available() = false with the fake binary installed")
	}

	audio, err := p.Synthesize(context.Background(), "Hello there.")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if got := len(audio.Data); got != 8 {
		t.Errorf("audio bytes = %d, want 8", got)
	}
	if audio.SampleRate != reading.SampleRate || audio.Channels != reading.Channels {
		t.Errorf("audio format = %d Hz / %d ch, want %d / %d",
			audio.SampleRate, audio.Channels, reading.SampleRate, reading.Channels)
	}

	stdin, err := os.ReadFile(stdinFile)
	if err != nil {
		t.Fatalf("read captured stdin: %v", err)
	}
	if got := string(stdin); got != "Hello there.\n" {
		t.Errorf("piper stdin = %q, want the text plus newline", got)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read captured args: %v", err)
	}
	got := strings.Split(strings.TrimSpace(string(raw)), "\n")
	want := []string{"--model", model, "--output-raw"}
	if len(got) != len(want) {
		t.Fatalf("piper args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("piper arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPiperSidecarConfigAndSpeed(t *testing.T) {
	out := t.TempDir()
	argsFile := filepath.Join(out, "args")
	installFakePiper(t, fmt.Sprintf(
		"#!/bin/sh\nprintf '%%s\\n' \"$@\" > \"%s\"\ncat > /dev/null\nprintf 'abcd'\n",
		argsFile))
	model := writeVoiceModel(t)
	sidecar := model + ".json"
	if err := os.WriteFile(sidecar, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	p := NewPiper(model, 2.0, nil)
	if _, err := p.Synthesize(context.Background(), "text"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read captured args: %v", err)
	}
	joined := strings.Join(strings.Split(strings.TrimSpace(string(raw)), "\n"), " ")
	if !strings.Contains(joined, "--config "+sidecar) {
		t.Errorf("args %q missing sidecar config", joined)
	}
	if !strings.Contains(joined, "--length-scale 0.50") {
		t.Errorf("args %q missing inverted speed scale", joined)
	}
}

func TestPiperFailureSurfacesStderr(t *testing.T) {
	installFakePiper(t, "#!/bin/sh\ncat > /dev/null\necho 'missing phoneme data' >&2\nexit 1\n")
	p := NewPiper(writeVoiceModel(t), 1.0, nil)

	_, err := p.Synthesize(context.Background(), "text")
	if !errors.Is(err, reading.ErrSynthesisFailed) {
		t.Fatalf("Synthesize error = %v, want ErrSynthesisFailed", err)
	}
	if !strings.Contains(err.Error(), "missing phoneme data") {
		t.Errorf("error %q does not carry piper's stderr", err)
	}
}

func TestPiperEmptyOutputIsFailure(t *testing.T) {
	installFakePiper(t, "#!/bin/sh\ncat > /dev/null\nexit 0\n")
	p := NewPiper(writeVoiceModel(t), 1.0, nil)

	_, err := p.Synthesize(context.Background(), "text")
	if !errors.Is(err, reading.ErrSynthesisFailed) {
		t.Fatalf("Synthesize error = %v, want ErrSynthesisFailed for empty output", err)
	}
}

func TestPiperHonorsCancellation(t *testing.T) {
	installFakePiper(t, "#!/bin/sh\ncat > /dev/null\nexec sleep 5\n")
	p := NewPiper(writeVoiceModel(t), 1.0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Synthesize(ctx, "text")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Synthesize error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("kill took %v, want prompt return", elapsed)
	}
}

func TestPiperUnavailableWithoutModel(t *testing.T) {
	installFakePiper(t, "#!/bin/sh\nprintf 'abcd'\n")
	p := NewPiper(filepath.Join(t.TempDir(), "missing.onnx"), 1.0, nil)

	if p.Available() {
		t.Error("Available() = true without a voice model")
	}
	_, err := p.Synthesize(context.Background(), "text")
	if !errors.Is(err, reading.ErrEngineNotAvailable) {
		t.Fatalf("Synthesize error = %v, want ErrEngineNotAvailable", err)
	}
}

func TestPiperUsesCache(t *testing.T) {
	out := t.TempDir()
	countFile := filepath.Join(out, "count")
	installFakePiper(t, fmt.Sprintf(
		"#!/bin/sh\ncat > /dev/null\necho x >> \"%s\"\nprintf 'abcdabcd'\n", countFile))

	c, err := cache.New(cache.Options{MemoryBytes: 1 << 20})
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	p := NewPiper(writeVoiceModel(t), 1.0, c)

	first, err := p.Synthesize(context.Background(), "Cached sentence.")
	if err != nil {
		t.Fatalf("first Synthesize failed: %v", err)
	}
	second, err := p.Synthesize(context.Background(), "Cached sentence.")
	if err != nil {
		t.Fatalf("second Synthesize failed: %v", err)
	}
	if len(first.Data) != len(second.Data) {
		t.Errorf("cached audio %d bytes, fresh audio %d bytes", len(second.Data), len(first.Data))
	}

	data, err := os.ReadFile(countFile)
	if err != nil {
		t.Fatalf("read run counter: %v", err)
	}
	if got := strings.Count(string(data), "x"); got != 1 {
		t.Errorf("piper ran %d times for a repeated sentence, want 1", got)
	}
}

package audio

import (
	"io"
	"testing"
	"time"

	"github.com/dgnsrekt/lector/reading"
)

func TestTrackingReaderCountsConsumption(t *testing.T) {
	// 44100 bytes per second at the shared format; 4410 bytes = 100ms.
	audio := reading.NewAudio(make([]byte, 4410))
	r := newTrackingReader(audio)

	if r.exhausted() {
		t.Fatal("exhausted before any read")
	}
	if got := r.position(); got != 0 {
		t.Fatalf("position before read = %v, want 0", got)
	}

	buf := make([]byte, 2205)
	n, err := r.Read(buf)
	if err != nil || n != 2205 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if got, want := r.position(), 50*time.Millisecond; got != want {
		t.Errorf("position after half = %v, want %v", got, want)
	}

	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if !r.exhausted() {
		t.Error("exhausted = false after drain")
	}
	if got, want := r.position(), 100*time.Millisecond; got != want {
		t.Errorf("position after drain = %v, want %v", got, want)
	}
	if n, err := r.Read(buf); n != 0 || err != io.EOF {
		t.Errorf("Read after drain = %d, %v, want EOF", n, err)
	}
}

func TestDeviceBufferByPlatform(t *testing.T) {
	if got := deviceBuffer("darwin"); got != 100*time.Millisecond {
		t.Errorf("darwin buffer = %v, want 100ms", got)
	}
	if got := deviceBuffer("linux"); got != 50*time.Millisecond {
		t.Errorf("linux buffer = %v, want 50ms", got)
	}
	if got := deviceBuffer("windows"); got != 50*time.Millisecond {
		t.Errorf("windows buffer = %v, want 50ms", got)
	}
}

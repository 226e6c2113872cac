package reading

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"synthesis failure recovers", ErrSynthesisFailed, true},
		{"wrapped synthesis failure recovers", fmt.Errorf("piper: %w", ErrSynthesisFailed), true},
		{"engine unavailable is fatal", ErrEngineNotAvailable, false},
		{"engine shutdown is fatal", ErrEngineShutdown, false},
		{"controller closed is fatal", ErrControllerClosed, false},
		{"empty document is fatal", ErrEmptyDocument, false},
		{"progress write recovers", ErrProgressWrite, true},
		{"arbitrary error recovers", errors.New("hiccup"), true},
		{"nil is recoverable", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecoverable(tt.err); got != tt.want {
				t.Errorf("IsRecoverable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestReadingErrorWrapping(t *testing.T) {
	base := NewReadingError(ErrSynthesisFailed, "engine", "synthesize")

	if !errors.Is(base, ErrSynthesisFailed) {
		t.Error("errors.Is failed to unwrap ReadingError")
	}
	if base.Severity != SeverityError {
		t.Errorf("default severity = %v, want SeverityError", base.Severity)
	}

	warn := base.WithSeverity(SeverityWarning)
	if warn.Severity != SeverityWarning {
		t.Errorf("WithSeverity = %v, want SeverityWarning", warn.Severity)
	}
	if !errors.Is(warn, ErrSynthesisFailed) {
		t.Error("WithSeverity lost the wrapped error")
	}

	if got := base.Error(); got != ErrSynthesisFailed.Error() {
		t.Errorf("Error() = %q, want underlying message %q", got, ErrSynthesisFailed.Error())
	}
	if base.Component != "engine" || base.Action != "synthesize" {
		t.Errorf("context = %q/%q, want engine/synthesize", base.Component, base.Action)
	}
}

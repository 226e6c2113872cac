package reading

import "errors"

// Common errors for the reading engine.
var (
	// Document errors
	ErrEmptyDocument    = errors.New("document contains no sentences")
	ErrNoDocument       = errors.New("no document loaded")
	ErrChapterNotFound  = errors.New("chapter index out of range")
	ErrSentenceNotFound = errors.New("position does not resolve to a sentence")

	// Engine errors
	ErrEngineNotAvailable = errors.New("speech engine is not available")
	ErrSynthesisFailed    = errors.New("speech synthesis failed")
	ErrEngineShutdown     = errors.New("speech engine has been shut down")

	// Player errors
	ErrNothingToPlay      = errors.New("no audio to play")
	ErrNotPlaying         = errors.New("no audio is playing")
	ErrNotPaused          = errors.New("audio is not paused")
	ErrInvalidAudioFormat = errors.New("invalid audio format")

	// Controller errors
	ErrControllerClosed = errors.New("playback controller has been closed")
	ErrInvalidState     = errors.New("invalid state for operation")
	ErrStateTransition  = errors.New("invalid state transition")

	// Persistence errors
	ErrProgressWrite = errors.New("progress record could not be written")

	// General errors
	ErrCanceled = errors.New("operation was canceled")
	ErrTimeout  = errors.New("operation timed out")
)

// IsRecoverable reports whether the session can keep reading after err.
// Synthesis and persistence failures are recovered by skipping or
// retrying; configuration and shutdown errors are not.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrEngineNotAvailable),
		errors.Is(err, ErrEngineShutdown),
		errors.Is(err, ErrControllerClosed),
		errors.Is(err, ErrEmptyDocument):
		return false
	}

	return true
}

// Severity classifies how loudly an error should surface.
type Severity int

const (
	// SeverityInfo is for conditions worth logging only.
	SeverityInfo Severity = iota
	// SeverityWarning is for degraded but working behavior.
	SeverityWarning
	// SeverityError is for failures the user should see as a status.
	SeverityError
)

// ReadingError carries where and during what an error happened, so the
// status surface can report it without the session dying.
type ReadingError struct {
	Err       error
	Component string
	Action    string
	Severity  Severity
}

// Error implements the error interface.
func (e *ReadingError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown reading error"
}

// Unwrap returns the underlying error.
func (e *ReadingError) Unwrap() error {
	return e.Err
}

// NewReadingError wraps err with component and action context.
func NewReadingError(err error, component, action string) *ReadingError {
	return &ReadingError{
		Err:       err,
		Component: component,
		Action:    action,
		Severity:  SeverityError,
	}
}

// WithSeverity sets the severity and returns the error for chaining.
func (e *ReadingError) WithSeverity(s Severity) *ReadingError {
	e.Severity = s
	return e
}

package reading

// Events emitted by the session for UI consumption. The reading
// package does not know about terminals; the UI layer forwards these
// to its own message loop and redraws only when one arrives.

// Event is implemented by every reading event.
type Event interface {
	event()
}

// PositionChanged reports that the active sentence moved.
type PositionChanged struct {
	Old    Position // Position before the move
	New    Position // Position after the move
	Manual bool     // True for user navigation, false for playback advance
}

// StateChanged reports a playback state transition.
type StateChanged struct {
	State PlaybackState // Snapshot after the transition
}

// StatusChanged carries a transient status line, such as a skipped
// sentence notice.
type StatusChanged struct {
	Message string // Human-readable status
	Err     error  // Underlying error, if any
}

// DocumentReloaded reports that the document was rebuilt from disk and
// positions were re-clamped.
type DocumentReloaded struct {
	Path string // Source file that changed
}

func (PositionChanged) event()  {}
func (StateChanged) event()     {}
func (StatusChanged) event()    {}
func (DocumentReloaded) event() {}

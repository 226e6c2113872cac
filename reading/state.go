package reading

import "time"

// StateType represents the playback state of the reading session.
type StateType int

const (
	// StateIdle indicates no speech activity.
	StateIdle StateType = iota
	// StateGenerating indicates audio is being synthesized for the
	// sentence at the current position.
	StateGenerating
	// StateSpeaking indicates audio for the current sentence is playing.
	StateSpeaking
	// StatePaused indicates playback is paused mid-sentence.
	StatePaused
	// StateCancelled indicates in-flight speech was cancelled and the
	// controller is settling back to idle.
	StateCancelled
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PlaybackState is a snapshot of the controller: which sentence speech
// is working on, how long it is expected to take, and the last error.
// Exactly one lives per session, owned by the Controller; everything
// else reads copies.
type PlaybackState struct {
	State    StateType
	Position Position      // sentence the state refers to
	Duration time.Duration // expected length of the current sentence
	Err      error         // last synthesis error, if any
}

// Active returns true while speech is being generated, played or held
// paused.
func (s PlaybackState) Active() bool {
	return s.State == StateGenerating || s.State == StateSpeaking || s.State == StatePaused
}

// CanPause returns true if playback can be paused.
func (s PlaybackState) CanPause() bool {
	return s.State == StateSpeaking
}

// CanResume returns true if playback can resume.
func (s PlaybackState) CanResume() bool {
	return s.State == StatePaused
}

// StateMachine enforces the legal playback transitions.
type StateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
	onEnter     map[StateType]func()
	onExit      map[StateType]func()
}

// NewStateMachine creates a state machine starting at StateIdle.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:       {StateGenerating},
			StateGenerating: {StateGenerating, StateSpeaking, StateCancelled, StateIdle},
			StateSpeaking:   {StateGenerating, StatePaused, StateCancelled, StateIdle},
			StatePaused:     {StateSpeaking, StateCancelled},
			StateCancelled:  {StateIdle},
		},
		onEnter: make(map[StateType]func()),
		onExit:  make(map[StateType]func()),
	}
}

// Transition attempts to move to the specified state and reports
// whether the transition was legal.
func (sm *StateMachine) Transition(to StateType) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	if exitFn, ok := sm.onExit[sm.current]; ok && exitFn != nil {
		exitFn()
	}

	sm.current = to

	if enterFn, ok := sm.onEnter[to]; ok && enterFn != nil {
		enterFn()
	}

	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state StateType, fn func()) {
	sm.onEnter[state] = fn
}

// OnExit registers a callback for exiting a state.
func (sm *StateMachine) OnExit(state StateType, fn func()) {
	sm.onExit[state] = fn
}

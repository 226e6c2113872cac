// Package reading implements the reading-position and speech-playback
// core for lector: the document model, the position cursor, sentence
// playback with cancellation, viewport following and progress state.
package reading

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// maxConsecutiveFailures is how many sentences in a row may fail to
// synthesize before auto-advance gives up and playback returns to
// idle with a user-visible status.
const maxConsecutiveFailures = 3

// closeWait bounds how long Close waits for the playback goroutine to
// drain after cancellation.
const closeWait = 2 * time.Second

// Controller owns the playback state machine and the one background
// speech task. Play starts a task that synthesizes and speaks
// sentences in document order, advancing the cursor after each
// natural completion. At most one task is live: starting a new one or
// cancelling bumps a monotonic generation counter, and a task may
// only touch shared state while its generation is still current, so
// nothing a cancelled task does afterward is visible.
type Controller struct {
	engine Engine
	player Player
	cursor *Cursor

	mu         sync.Mutex
	machine    *StateMachine
	snapshot   PlaybackState
	generation uint64
	cancelTask context.CancelFunc
	taskDone   chan struct{}
	closed     bool

	onState  func(PlaybackState)
	onStatus func(StatusChanged)
}

// NewController wires a controller to its engine, player and cursor.
func NewController(engine Engine, player Player, cursor *Cursor) *Controller {
	return &Controller{
		engine:  engine,
		player:  player,
		cursor:  cursor,
		machine: NewStateMachine(),
	}
}

// OnState registers the state change callback. Called outside the
// controller lock, on whatever goroutine caused the change.
func (c *Controller) OnState(fn func(PlaybackState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// OnStatus registers the callback for skip and abort notices.
func (c *Controller) OnStatus(fn func(StatusChanged)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// State returns a snapshot of the playback state.
func (c *Controller) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Play starts speaking at pos. Any active task is cancelled first;
// the new task then runs until the end of the document, cancellation,
// or repeated synthesis failure.
func (c *Controller) Play(pos Position) error {
	// Fetched outside the lock: the cursor's manual hook takes the
	// controller lock while holding the cursor's, so the controller
	// never takes them in the other order.
	doc := c.cursor.Document()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}

	c.preemptLocked()

	pos = doc.ClampToValid(pos)
	if !c.machine.Transition(StateGenerating) {
		c.mu.Unlock()
		return ErrInvalidState
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelTask = cancel
	done := make(chan struct{})
	c.taskDone = done
	gen := c.generation
	c.setSnapshotLocked(PlaybackState{State: StateGenerating, Position: pos})
	notify := c.stateNotifierLocked()
	c.mu.Unlock()

	notify()
	go c.playLoop(ctx, gen, pos, done)
	return nil
}

// Pause suspends audible playback. It is a no-op unless speech is
// currently audible.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if !c.snapshot.CanPause() {
		c.mu.Unlock()
		return nil
	}
	if err := c.player.Pause(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.machine.Transition(StatePaused)
	c.snapshot.State = StatePaused
	notify := c.stateNotifierLocked()
	c.mu.Unlock()

	notify()
	return nil
}

// Resume continues paused playback. It is a no-op unless paused.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if !c.snapshot.CanResume() {
		c.mu.Unlock()
		return nil
	}
	if err := c.player.Resume(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.machine.Transition(StateSpeaking)
	c.snapshot.State = StateSpeaking
	notify := c.stateNotifierLocked()
	c.mu.Unlock()

	notify()
	return nil
}

// Cancel stops the active task from any state. The engine context is
// cancelled and the player stopped before Cancel returns, so no audio
// outlives it; the goroutine itself drains in the background and its
// late completions are discarded by the generation guard.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	c.preemptLocked()
	notify := c.stateNotifierLocked()
	c.mu.Unlock()

	notify()
	return nil
}

// Close cancels playback and shuts the controller down. Play returns
// ErrControllerClosed afterward. Close waits briefly for the playback
// goroutine to drain.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.preemptLocked()
	done := c.taskDone
	notify := c.stateNotifierLocked()
	c.mu.Unlock()

	notify()
	if done != nil {
		select {
		case <-done:
		case <-time.After(closeWait):
			log.Warn("playback task did not drain before close")
		}
	}
	return nil
}

// preemptLocked invalidates the active task and settles the machine
// back to idle. Caller holds c.mu.
func (c *Controller) preemptLocked() {
	c.generation++
	if c.cancelTask != nil {
		c.cancelTask()
		c.cancelTask = nil
	}
	if cur := c.machine.Current(); cur != StateIdle {
		c.machine.Transition(StateCancelled)
		c.machine.Transition(StateIdle)
		if err := c.player.Stop(); err != nil {
			log.Debug("player stop during preempt", "err", err)
		}
	}
	c.setSnapshotLocked(PlaybackState{State: StateIdle, Position: c.snapshot.Position})
}

// playLoop is the background task for one Play call. It speaks
// sentences in order until the document ends, the context is
// cancelled, or failures accumulate. Every externally visible effect
// is guarded by gen.
func (c *Controller) playLoop(ctx context.Context, gen uint64, pos Position, done chan struct{}) {
	defer close(done)

	failures := 0
	for {
		doc := c.cursor.Document()
		sentence, ok := doc.Resolve(pos)
		if !ok {
			c.settleIdle(gen)
			return
		}

		speech := strings.TrimSpace(sentence.Speech)
		if speech == "" {
			// Nothing to speak; slide to the next sentence.
			next, ok := doc.Next(pos)
			if !ok {
				c.settleIdle(gen)
				return
			}
			if !c.advance(gen, next) || !c.toGenerating(gen, next) {
				return
			}
			pos = next
			continue
		}

		audio, err := c.engine.Synthesize(ctx, speech)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = audio.Validate()
		}
		if err != nil {
			failures++
			log.Warn("synthesis failed", "position", pos, "failures", failures, "err", err)
			if !IsRecoverable(err) {
				c.abort(gen, pos, err)
				return
			}
			if failures >= maxConsecutiveFailures {
				c.abort(gen, pos, err)
				return
			}
			c.status(gen, StatusChanged{Message: "speech failed, skipping sentence", Err: err})
			next, ok := doc.Next(pos)
			if !ok {
				c.settleIdle(gen)
				return
			}
			if !c.advance(gen, next) || !c.toGenerating(gen, next) {
				return
			}
			pos = next
			continue
		}
		failures = 0

		if !c.toSpeaking(gen, pos, audio.Duration) {
			return
		}
		if err := c.player.Play(audio); err != nil {
			failures++
			log.Warn("playback failed", "position", pos, "err", err)
			c.status(gen, StatusChanged{Message: "audio playback failed", Err: err})
			if failures >= maxConsecutiveFailures || !IsRecoverable(err) {
				c.abort(gen, pos, err)
				return
			}
			next, ok := doc.Next(pos)
			if !ok {
				c.settleIdle(gen)
				return
			}
			if !c.advance(gen, next) || !c.toGenerating(gen, next) {
				return
			}
			pos = next
			continue
		}

		select {
		case <-ctx.Done():
			// Cancel already stopped the player and settled the state.
			return
		case <-c.player.Done():
		}
		if ctx.Err() != nil {
			return
		}

		next, ok := doc.Next(pos)
		if !ok {
			c.settleIdle(gen)
			return
		}
		if !c.toGenerating(gen, next) {
			return
		}
		if !c.advance(gen, next) {
			return
		}
		pos = next
	}
}

// advance publishes a playback-driven cursor move. False when the
// task is stale.
func (c *Controller) advance(gen uint64, next Position) bool {
	c.mu.Lock()
	current := gen == c.generation && !c.closed
	c.mu.Unlock()
	if !current {
		return false
	}
	c.cursor.AdvanceTo(next)
	return true
}

// toSpeaking moves the machine to speaking for pos if the task is
// still current.
func (c *Controller) toSpeaking(gen uint64, pos Position, d time.Duration) bool {
	return c.transition(gen, StateSpeaking, PlaybackState{
		State:    StateSpeaking,
		Position: pos,
		Duration: d,
	})
}

// toGenerating moves the machine to generating for the next sentence.
func (c *Controller) toGenerating(gen uint64, pos Position) bool {
	return c.transition(gen, StateGenerating, PlaybackState{
		State:    StateGenerating,
		Position: pos,
	})
}

// settleIdle ends the task normally at the document end.
func (c *Controller) settleIdle(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.machine.Transition(StateIdle)
	c.setSnapshotLocked(PlaybackState{State: StateIdle, Position: c.snapshot.Position})
	notify := c.stateNotifierLocked()
	c.mu.Unlock()
	notify()
}

// abort ends the task after repeated or unrecoverable failure and
// surfaces a status instead of looping silently.
func (c *Controller) abort(gen uint64, pos Position, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.machine.Transition(StateCancelled)
	c.machine.Transition(StateIdle)
	c.setSnapshotLocked(PlaybackState{State: StateIdle, Position: pos, Err: err})
	notify := c.stateNotifierLocked()
	status := c.onStatus
	c.mu.Unlock()

	// Status before the state change, so the notice is on screen by
	// the time the UI sees playback go idle.
	if status != nil {
		status(StatusChanged{Message: "speech stopped after repeated failures", Err: err})
	}
	notify()
	log.Error("playback aborted", "position", pos, "err", err)
}

// transition applies a gen-guarded machine transition plus snapshot.
func (c *Controller) transition(gen uint64, to StateType, snap PlaybackState) bool {
	c.mu.Lock()
	if gen != c.generation || c.closed {
		c.mu.Unlock()
		return false
	}
	if !c.machine.Transition(to) {
		c.mu.Unlock()
		return false
	}
	c.setSnapshotLocked(snap)
	notify := c.stateNotifierLocked()
	c.mu.Unlock()
	notify()
	return true
}

// status delivers a transient status if the task is still current.
func (c *Controller) status(gen uint64, s StatusChanged) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	fn := c.onStatus
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (c *Controller) setSnapshotLocked(s PlaybackState) {
	c.snapshot = s
}

// stateNotifierLocked captures the callback and snapshot for delivery
// after the lock is released.
func (c *Controller) stateNotifierLocked() func() {
	fn := c.onState
	snap := c.snapshot
	if fn == nil {
		return func() {}
	}
	return func() { fn(snap) }
}

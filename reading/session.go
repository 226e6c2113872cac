package reading

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// checkpointEvery throttles position saves between chapter changes.
const checkpointEvery = 5 * time.Second

// eventBuffer sizes the session event channel. The UI drains it on
// every update; overflow drops the event, which is safe because the
// UI redraws from snapshots, not from event payloads.
const eventBuffer = 128

// ProgressRecord is the persisted reading state for one book.
type ProgressRecord struct {
	BookID     string    `json:"book_id"`
	Path       string    `json:"path"`
	Position   Position  `json:"position"`
	Percent    float64   `json:"percent"`
	AutoScroll bool      `json:"auto_scroll"`
	Focus      bool      `json:"focus"`
	Speech     bool      `json:"speech"`
	Timestamp  time.Time `json:"timestamp"`
}

// ProgressStore persists records between runs. Implementations must
// tolerate concurrent readers in other processes.
type ProgressStore interface {
	Load(bookID string) (ProgressRecord, bool)
	Save(ProgressRecord) error
}

// Session is the lifetime of one open book: document, cursor,
// controller and progress store wired together, with their callbacks
// fanned into a single event channel for the UI. Created at book
// open, closed at quit; Close cancels playback before the final save
// so no audio outlives the session.
type Session struct {
	cursor *Cursor
	ctrl   *Controller
	store  ProgressStore
	bookID string
	path   string

	events  chan Event
	limiter *rate.Limiter

	mu         sync.Mutex
	speech     bool
	autoScroll bool
	focus      bool
	closing    bool // teardown started
	closed     bool // event channel closed
}

// SessionOption adjusts how a session starts.
type SessionOption func(*Session)

// WithViewDefaults sets the view toggles used when the store has no
// record for the book. A saved record still wins.
func WithViewDefaults(autoScroll, focus bool) SessionOption {
	return func(s *Session) {
		s.autoScroll = autoScroll
		s.focus = focus
	}
}

// NewSession builds a session over doc, restoring the position and
// view toggles from the store when a record exists. Speech mode
// always starts off; restored audio on open would be a surprise.
func NewSession(doc *Document, engine Engine, player Player, store ProgressStore, bookID, path string, opts ...SessionOption) *Session {
	s := &Session{
		store:      store,
		bookID:     bookID,
		path:       path,
		events:     make(chan Event, eventBuffer),
		limiter:    rate.NewLimiter(rate.Every(checkpointEvery), 1),
		autoScroll: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	initial := doc.Start()
	if store != nil {
		if rec, ok := store.Load(bookID); ok {
			initial = rec.Position
			s.autoScroll = rec.AutoScroll
			s.focus = rec.Focus
		}
	}

	s.cursor = NewCursor(doc, initial)
	s.ctrl = NewController(engine, player, s.cursor)

	s.cursor.SetManualHook(func() { s.ctrl.Cancel() })
	s.cursor.OnChange(s.onPosition)
	s.ctrl.OnState(func(ps PlaybackState) { s.publish(StateChanged{State: ps}) })
	s.ctrl.OnStatus(func(st StatusChanged) { s.publish(st) })

	return s
}

// Events returns the channel the UI consumes. It is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Cursor returns the session's position cursor.
func (s *Session) Cursor() *Cursor {
	return s.cursor
}

// Document returns the current document.
func (s *Session) Document() *Document {
	return s.cursor.Document()
}

// State returns the playback state snapshot.
func (s *Session) State() PlaybackState {
	return s.ctrl.State()
}

// BookID returns the stable identifier progress is keyed by.
func (s *Session) BookID() string {
	return s.bookID
}

// Path returns the source file path.
func (s *Session) Path() string {
	return s.path
}

// TogglePlayback is the space-bar action: pause when speaking, resume
// when paused, otherwise start speaking at the cursor. Starting turns
// speech mode on, so navigation keeps speech at the cursor until Stop.
func (s *Session) TogglePlayback() error {
	switch s.ctrl.State().State {
	case StateSpeaking:
		return s.ctrl.Pause()
	case StatePaused:
		return s.ctrl.Resume()
	case StateGenerating:
		return nil
	default:
		s.mu.Lock()
		s.speech = true
		s.mu.Unlock()
		return s.ctrl.Play(s.cursor.Position())
	}
}

// Stop ends speech mode and cancels playback.
func (s *Session) Stop() error {
	s.mu.Lock()
	s.speech = false
	s.mu.Unlock()
	return s.ctrl.Cancel()
}

// SpeechEnabled reports whether navigation restarts speech.
func (s *Session) SpeechEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speech
}

// ToggleAutoScroll flips viewport following and returns the new value.
func (s *Session) ToggleAutoScroll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoScroll = !s.autoScroll
	return s.autoScroll
}

// AutoScrollEnabled reports whether the viewport follows the
// highlight.
func (s *Session) AutoScrollEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoScroll
}

// ToggleFocus flips centered-highlight mode and returns the new value.
func (s *Session) ToggleFocus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus = !s.focus
	return s.focus
}

// FocusEnabled reports whether the highlight stays centered.
func (s *Session) FocusEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// Snapshot captures the current sentence and its chapter text for the
// assistant. It reads fresh state every call; the assistant overlay
// re-captures on every open rather than caching across reopens.
func (s *Session) Snapshot() (sentence, chapter string) {
	doc := s.cursor.Document()
	pos := s.cursor.Position()
	if sent, ok := doc.Resolve(pos); ok {
		sentence = sent.Display
	}
	return sentence, doc.ChapterText(pos.Chapter)
}

// Reload swaps in a rebuilt document after the source file changed.
// Playback cancels, the position re-clamps, and subscribers get a
// reload event.
func (s *Session) Reload(doc *Document) {
	s.ctrl.Cancel()
	s.cursor.SetDocument(doc)
	s.publish(DocumentReloaded{Path: s.path})
	s.checkpoint()
}

// Close tears the session down: playback is cancelled and drained
// first, then the event channel closes, then the final progress
// record is written unconditionally.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	err := s.ctrl.Close()

	// Publishers check closed under the same lock, so nothing can be
	// mid-send when the channel closes.
	s.mu.Lock()
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.checkpoint()
	return err
}

// onPosition fans cursor changes into the event channel, keeps speech
// at the cursor on manual moves, and checkpoints progress. Chapter
// changes save immediately; smaller moves save at most once per
// checkpoint interval.
func (s *Session) onPosition(ev PositionChanged) {
	s.publish(ev)

	if ev.Manual && s.SpeechEnabled() && !s.tearingDown() {
		if err := s.ctrl.Play(ev.New); err != nil {
			log.Warn("speech restart after navigation failed", "err", err)
		}
	}

	if ev.Old.Chapter != ev.New.Chapter || s.limiter.Allow() {
		s.checkpoint()
	}
}

// checkpoint writes the current record. Failures log and retry on the
// next checkpoint; they never block reading.
func (s *Session) checkpoint() {
	if s.store == nil {
		return
	}

	doc := s.cursor.Document()
	pos := s.cursor.Position()
	s.mu.Lock()
	rec := ProgressRecord{
		BookID:     s.bookID,
		Path:       s.path,
		Position:   pos,
		Percent:    doc.Progress(pos),
		AutoScroll: s.autoScroll,
		Focus:      s.focus,
		Speech:     s.speech,
		Timestamp:  time.Now(),
	}
	s.mu.Unlock()

	if err := s.store.Save(rec); err != nil {
		log.Warn("progress save failed", "book", s.bookID, "err", err)
	}
}

func (s *Session) tearingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// publish delivers an event without ever blocking a core goroutine.
func (s *Session) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		log.Debug("session event dropped", "type", fmt.Sprintf("%T", ev))
	}
}

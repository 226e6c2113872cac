package reading

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubStore keeps one record per book in memory and counts saves.
type stubStore struct {
	mu      sync.Mutex
	rec     ProgressRecord
	has     bool
	saves   []ProgressRecord
	saveErr error
}

func (st *stubStore) Load(bookID string) (ProgressRecord, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.has || st.rec.BookID != bookID {
		return ProgressRecord{}, false
	}
	return st.rec, true
}

func (st *stubStore) Save(rec ProgressRecord) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.saveErr != nil {
		return st.saveErr
	}
	st.saves = append(st.saves, rec)
	st.rec = rec
	st.has = true
	return nil
}

func (st *stubStore) saveCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.saves)
}

func (st *stubStore) lastSave() (ProgressRecord, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.saves) == 0 {
		return ProgressRecord{}, false
	}
	return st.saves[len(st.saves)-1], true
}

func newTestSession(t *testing.T, store ProgressStore) (*Session, *stubEngine, *stubPlayer) {
	t.Helper()
	doc := buildTestDocument(t)
	engine := &stubEngine{}
	player := &stubPlayer{auto: true}
	sess := NewSession(doc, engine, player, store, "book-1", "/tmp/book.txt")
	t.Cleanup(func() { sess.Close() })
	return sess, engine, player
}

func waitEvent(t *testing.T, events <-chan Event, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("event channel closed while waiting")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func waitSessionState(t *testing.T, events <-chan Event, want StateType) PlaybackState {
	t.Helper()
	ev := waitEvent(t, events, func(ev Event) bool {
		sc, ok := ev.(StateChanged)
		return ok && sc.State.State == want
	})
	return ev.(StateChanged).State
}

func TestSessionDefaults(t *testing.T) {
	sess, _, _ := newTestSession(t, nil)

	if got, want := sess.Cursor().Position(), sess.Document().Start(); got != want {
		t.Errorf("initial position = %v, want %v", got, want)
	}
	if !sess.AutoScrollEnabled() {
		t.Error("auto-scroll should default on")
	}
	if sess.FocusEnabled() {
		t.Error("focus should default off")
	}
	if sess.SpeechEnabled() {
		t.Error("speech should default off")
	}
	if sess.BookID() != "book-1" || sess.Path() != "/tmp/book.txt" {
		t.Errorf("identity = %q %q", sess.BookID(), sess.Path())
	}
}

func TestSessionViewDefaults(t *testing.T) {
	doc := buildTestDocument(t)
	engine := &stubEngine{}
	player := &stubPlayer{auto: true}
	sess := NewSession(doc, engine, player, nil, "book-1", "/tmp/book.txt",
		WithViewDefaults(false, true))
	t.Cleanup(func() { sess.Close() })

	if sess.AutoScrollEnabled() {
		t.Error("auto-scroll default not applied")
	}
	if !sess.FocusEnabled() {
		t.Error("focus default not applied")
	}
}

func TestSessionViewDefaultsYieldToRecord(t *testing.T) {
	store := &stubStore{
		rec: ProgressRecord{
			BookID:     "book-1",
			AutoScroll: true,
			Focus:      false,
		},
		has: true,
	}
	doc := buildTestDocument(t)
	engine := &stubEngine{}
	player := &stubPlayer{auto: true}
	sess := NewSession(doc, engine, player, store, "book-1", "/tmp/book.txt",
		WithViewDefaults(false, true))
	t.Cleanup(func() { sess.Close() })

	if !sess.AutoScrollEnabled() {
		t.Error("saved record should override the auto-scroll default")
	}
	if sess.FocusEnabled() {
		t.Error("saved record should override the focus default")
	}
}

func TestSessionRestoresProgress(t *testing.T) {
	store := &stubStore{
		rec: ProgressRecord{
			BookID:     "book-1",
			Position:   Position{Chapter: 1, Paragraph: 0, Sentence: 1},
			AutoScroll: false,
			Focus:      true,
			Speech:     true,
		},
		has: true,
	}
	sess, _, _ := newTestSession(t, store)

	want := Position{Chapter: 1, Paragraph: 0, Sentence: 1}
	if got := sess.Cursor().Position(); got != want {
		t.Errorf("restored position = %v, want %v", got, want)
	}
	if sess.AutoScrollEnabled() {
		t.Error("auto-scroll should restore off")
	}
	if !sess.FocusEnabled() {
		t.Error("focus should restore on")
	}
	if sess.SpeechEnabled() {
		t.Error("speech must stay off on open even when the record has it on")
	}
}

func TestSessionRestoreClampsStalePosition(t *testing.T) {
	store := &stubStore{
		rec: ProgressRecord{
			BookID:   "book-1",
			Position: Position{Chapter: 9, Paragraph: 9, Sentence: 9},
		},
		has: true,
	}
	sess, _, _ := newTestSession(t, store)

	if got, want := sess.Cursor().Position(), sess.Document().End(); got != want {
		t.Errorf("stale position clamped to %v, want %v", got, want)
	}
}

func TestSessionPlaybackDrivesCursor(t *testing.T) {
	sess, engine, _ := newTestSession(t, nil)
	events := sess.Events()

	if err := sess.TogglePlayback(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	ev := waitEvent(t, events, func(ev Event) bool {
		_, ok := ev.(PositionChanged)
		return ok
	})
	if pc := ev.(PositionChanged); pc.Manual {
		t.Error("playback advance flagged as manual")
	}
	waitSessionState(t, events, StateIdle)

	if got, want := sess.Cursor().Position(), sess.Document().End(); got != want {
		t.Errorf("cursor after playback = %v, want %v", got, want)
	}
	if got, want := len(engine.callTexts()), sess.Document().SentenceCount(); got != want {
		t.Errorf("synthesized %d sentences, want %d", got, want)
	}
	if !sess.SpeechEnabled() {
		t.Error("speech mode should survive reaching the end")
	}
}

func TestSessionTogglePlaybackPausesAndResumes(t *testing.T) {
	doc := buildTestDocument(t)
	engine := &stubEngine{}
	player := &stubPlayer{} // streams wait for finish()
	sess := NewSession(doc, engine, player, nil, "book-1", "/tmp/book.txt")
	t.Cleanup(func() { sess.Close() })
	events := sess.Events()

	if err := sess.TogglePlayback(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !sess.SpeechEnabled() {
		t.Error("starting playback should enable speech mode")
	}
	waitSessionState(t, events, StateSpeaking)

	if err := sess.TogglePlayback(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	waitSessionState(t, events, StatePaused)

	if err := sess.TogglePlayback(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	waitSessionState(t, events, StateSpeaking)

	if err := sess.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	waitSessionState(t, events, StateIdle)
	if sess.SpeechEnabled() {
		t.Error("Stop should disable speech mode")
	}
}

func TestSessionTogglePlaybackWhileGeneratingIsNoop(t *testing.T) {
	doc := buildTestDocument(t)
	engine := &stubEngine{
		started: make(chan string, 8),
		release: make(chan struct{}),
	}
	player := &stubPlayer{auto: true}
	sess := NewSession(doc, engine, player, nil, "book-1", "/tmp/book.txt")
	t.Cleanup(func() { sess.Close() })

	if err := sess.TogglePlayback(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	<-engine.started

	if err := sess.TogglePlayback(); err != nil {
		t.Fatalf("toggle while generating: %v", err)
	}
	if got := len(engine.callTexts()); got != 1 {
		t.Errorf("engine called %d times, want 1", got)
	}
}

func TestSessionManualNavigationRestartsSpeech(t *testing.T) {
	doc := buildTestDocument(t)
	engine := &stubEngine{
		started: make(chan string, 8),
		release: make(chan struct{}),
	}
	player := &stubPlayer{auto: true}
	sess := NewSession(doc, engine, player, nil, "book-1", "/tmp/book.txt")
	t.Cleanup(func() { sess.Close() })

	if err := sess.TogglePlayback(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	first := <-engine.started

	sess.Cursor().NextSentence()
	second := <-engine.started

	start, _ := doc.Resolve(doc.Start())
	nextPos, _ := doc.Next(doc.Start())
	next, _ := doc.Resolve(nextPos)
	if first != start.Speech {
		t.Errorf("first synthesis %q, want %q", first, start.Speech)
	}
	if second != next.Speech {
		t.Errorf("synthesis after navigation %q, want %q", second, next.Speech)
	}
}

func TestSessionStopEndsSpeechFollow(t *testing.T) {
	doc := buildTestDocument(t)
	engine := &stubEngine{
		started: make(chan string, 8),
		release: make(chan struct{}),
	}
	player := &stubPlayer{auto: true}
	sess := NewSession(doc, engine, player, nil, "book-1", "/tmp/book.txt")
	t.Cleanup(func() { sess.Close() })

	if err := sess.TogglePlayback(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	<-engine.started

	if err := sess.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	sess.Cursor().NextSentence()

	select {
	case text := <-engine.started:
		t.Errorf("navigation after Stop synthesized %q", text)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSessionCheckpointPolicy(t *testing.T) {
	store := &stubStore{}
	sess, _, _ := newTestSession(t, store)
	cursor := sess.Cursor()

	// The limiter starts with one token, so the first move saves.
	cursor.NextSentence()
	if got := store.saveCount(); got != 1 {
		t.Fatalf("saves after first move = %d, want 1", got)
	}

	// A second move in the same chapter lands inside the throttle
	// window and is skipped.
	cursor.NextSentence()
	if got := store.saveCount(); got != 1 {
		t.Fatalf("saves after second move = %d, want 1", got)
	}

	// Chapter changes always save.
	cursor.JumpToChapter(1)
	if got := store.saveCount(); got != 2 {
		t.Fatalf("saves after chapter jump = %d, want 2", got)
	}

	rec, ok := store.lastSave()
	if !ok {
		t.Fatal("no record saved")
	}
	if want := sess.Document().ChapterStart(1); rec.Position != want {
		t.Errorf("saved position = %v, want %v", rec.Position, want)
	}
	if rec.BookID != "book-1" || rec.Path != "/tmp/book.txt" {
		t.Errorf("saved identity = %q %q", rec.BookID, rec.Path)
	}
	if !rec.AutoScroll {
		t.Error("record should carry auto-scroll on")
	}
	if rec.Percent <= 0 || rec.Percent > 1 {
		t.Errorf("saved percent = %v", rec.Percent)
	}
	if rec.Timestamp.IsZero() {
		t.Error("record missing timestamp")
	}
}

func TestSessionSnapshot(t *testing.T) {
	sess, _, _ := newTestSession(t, nil)

	sentence, chapter := sess.Snapshot()
	if sentence != "First sentence." {
		t.Errorf("snapshot sentence = %q", sentence)
	}
	if !strings.Contains(chapter, "Third sentence.") {
		t.Errorf("snapshot chapter missing later sentence: %q", chapter)
	}

	sess.Cursor().JumpToChapter(1)
	sentence, chapter = sess.Snapshot()
	if sentence != "Fourth sentence." {
		t.Errorf("snapshot after jump = %q", sentence)
	}
	if strings.Contains(chapter, "First sentence.") {
		t.Errorf("snapshot chapter not refreshed: %q", chapter)
	}
}

func TestSessionReload(t *testing.T) {
	store := &stubStore{}
	sess, _, _ := newTestSession(t, store)
	events := sess.Events()
	sess.Cursor().JumpToEnd()

	small, err := Build([]ChapterSource{
		{Title: "Only", Paragraphs: []string{"Lone sentence."}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	before := store.saveCount()
	sess.Reload(small)

	waitEvent(t, events, func(ev Event) bool {
		_, ok := ev.(DocumentReloaded)
		return ok
	})
	if got := sess.Document(); got != small {
		t.Error("document not swapped")
	}
	if got, want := sess.Cursor().Position(), small.Start(); got != want {
		t.Errorf("position after reload = %v, want %v", got, want)
	}
	if got := store.saveCount(); got <= before {
		t.Error("reload should checkpoint")
	}
}

func TestSessionCloseDrainsAndSaves(t *testing.T) {
	store := &stubStore{}
	sess, _, _ := newTestSession(t, store)
	sess.Cursor().NextSentence()

	if err := sess.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	rec, ok := store.lastSave()
	if !ok {
		t.Fatal("close wrote no record")
	}
	next, _ := sess.Document().Next(sess.Document().Start())
	if rec.Position != next {
		t.Errorf("final record position = %v, want %v", rec.Position, next)
	}

	// The event channel closes so UI loops terminate.
	deadline := time.After(time.Second)
drain:
	for {
		select {
		case _, ok := <-sess.Events():
			if !ok {
				break drain
			}
		case <-deadline:
			t.Fatal("event channel still open after Close")
		}
	}

	if err := sess.Close(); err != nil {
		t.Errorf("second close returned %v", err)
	}
	if err := sess.TogglePlayback(); !errors.Is(err, ErrControllerClosed) {
		t.Errorf("TogglePlayback after close = %v, want ErrControllerClosed", err)
	}

	// Late cursor movement must not panic or publish.
	sess.Cursor().NextSentence()
}

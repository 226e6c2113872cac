package reading

import (
	"sync"
)

// scrollStep is the fine-scroll increment in sentences. Fine scroll
// moves the highlight, not just the viewport, so the highlighted
// sentence and the visible text never diverge.
const scrollStep = 1

// Cursor owns the current reading position. Every move, manual or
// playback-driven, goes through a Cursor method; no other component
// writes the position. Manual moves signal the playback hook before
// the new position takes effect, so in-flight speech for the old
// sentence is cancelled first. All operations are total: out-of-range
// requests clamp to the nearest valid sentence instead of erroring.
type Cursor struct {
	mu       sync.Mutex
	doc      *Document
	pos      Position
	onChange []func(PositionChanged)
	onManual func()
}

// NewCursor creates a cursor over doc starting at initial, clamped
// into range.
func NewCursor(doc *Document, initial Position) *Cursor {
	return &Cursor{
		doc: doc,
		pos: doc.ClampToValid(initial),
	}
}

// Position returns the current position.
func (c *Cursor) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Document returns the document the cursor navigates.
func (c *Cursor) Document() *Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// OnChange registers a callback invoked after every position change.
// Callbacks run on the goroutine that caused the move.
func (c *Cursor) OnChange(fn func(PositionChanged)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// SetManualHook registers the hook fired before a manual move takes
// effect. The controller uses it to cancel in-flight speech. The hook
// must signal and return; it must not call back into the cursor.
func (c *Cursor) SetManualHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onManual = fn
}

// NextSentence moves forward one sentence, crossing paragraph and
// chapter boundaries. At the end of the document it stays put.
func (c *Cursor) NextSentence() Position {
	return c.manualMove(func(d *Document, p Position) Position {
		next, ok := d.Next(p)
		if !ok {
			return p
		}
		return next
	})
}

// PreviousSentence moves back one sentence. At the start of the
// document it stays put.
func (c *Cursor) PreviousSentence() Position {
	return c.manualMove(func(d *Document, p Position) Position {
		prev, ok := d.Previous(p)
		if !ok {
			return p
		}
		return prev
	})
}

// NextParagraph moves to the first sentence of the following
// paragraph.
func (c *Cursor) NextParagraph() Position {
	return c.manualMove(func(d *Document, p Position) Position {
		next, ok := d.NextParagraph(p)
		if !ok {
			return p
		}
		return next
	})
}

// PreviousParagraph moves to the first sentence of the preceding
// paragraph.
func (c *Cursor) PreviousParagraph() Position {
	return c.manualMove(func(d *Document, p Position) Position {
		prev, ok := d.PreviousParagraph(p)
		if !ok {
			return p
		}
		return prev
	})
}

// NextChapter moves to the start of the following chapter through the
// same path as a table-of-contents jump.
func (c *Cursor) NextChapter() Position {
	return c.manualMove(func(d *Document, p Position) Position {
		return d.ChapterStart(d.ChapterOf(p) + 1)
	})
}

// PreviousChapter moves to the start of the preceding chapter.
func (c *Cursor) PreviousChapter() Position {
	return c.manualMove(func(d *Document, p Position) Position {
		return d.ChapterStart(d.ChapterOf(p) - 1)
	})
}

// PageDown moves forward by one viewport worth of sentences. The
// renderer supplies how many sentences fit.
func (c *Cursor) PageDown(sentences int) Position {
	return c.pageMove(sentences)
}

// PageUp moves back by one viewport worth of sentences.
func (c *Cursor) PageUp(sentences int) Position {
	return c.pageMove(-sentences)
}

// ScrollDown fine-scrolls forward, moving the highlight with the view.
func (c *Cursor) ScrollDown() Position {
	return c.pageMove(scrollStep)
}

// ScrollUp fine-scrolls back, moving the highlight with the view.
func (c *Cursor) ScrollUp() Position {
	return c.pageMove(-scrollStep)
}

// JumpToStart moves to the first sentence of the document.
func (c *Cursor) JumpToStart() Position {
	return c.manualMove(func(d *Document, p Position) Position {
		return d.Start()
	})
}

// JumpToEnd moves to the last sentence of the document.
func (c *Cursor) JumpToEnd() Position {
	return c.manualMove(func(d *Document, p Position) Position {
		return d.End()
	})
}

// JumpToChapter moves to the start of chapter i. Both the table of
// contents and programmatic chapter jumps go through here, with the
// same chapter index the document uses everywhere else, so the
// selected and the rendered chapter cannot diverge.
func (c *Cursor) JumpToChapter(i int) Position {
	return c.manualMove(func(d *Document, p Position) Position {
		return d.ChapterStart(i)
	})
}

// JumpToSentence moves directly to p, clamped. Used by pointer
// selection, which resolves clicks per sentence.
func (c *Cursor) JumpToSentence(p Position) Position {
	return c.manualMove(func(d *Document, _ Position) Position {
		return d.ClampToValid(p)
	})
}

// JumpToTopVisible selects the first sentence visible in the viewport.
// The renderer resolves which sentence that is and passes it here.
func (c *Cursor) JumpToTopVisible(p Position) Position {
	return c.JumpToSentence(p)
}

// AdvanceTo is the playback-driven move: the controller publishes the
// sentence it is about to speak. No manual hook fires and the change
// notification carries Manual=false, so the cancellation path cannot
// trigger on the controller's own advancement.
func (c *Cursor) AdvanceTo(p Position) Position {
	c.mu.Lock()
	old := c.pos
	next := c.doc.ClampToValid(p)
	if next == old {
		c.mu.Unlock()
		return old
	}
	c.pos = next
	subs := c.subscribers()
	c.mu.Unlock()

	notify(subs, PositionChanged{Old: old, New: next, Manual: false})
	return next
}

// SetDocument swaps the document after a reload and re-clamps the
// position into it. A resulting move is reported as playback-driven
// so no cancellation fires; the caller stops playback around reloads
// itself.
func (c *Cursor) SetDocument(doc *Document) Position {
	c.mu.Lock()
	old := c.pos
	c.doc = doc
	next := doc.ClampToValid(old)
	c.pos = next
	subs := c.subscribers()
	c.mu.Unlock()

	if next != old {
		notify(subs, PositionChanged{Old: old, New: next, Manual: false})
	}
	return next
}

// pageMove shifts the position by delta sentences through the ordinal
// table, clamping at both ends.
func (c *Cursor) pageMove(delta int) Position {
	return c.manualMove(func(d *Document, p Position) Position {
		return d.AtOrdinal(d.OrdinalOf(p) + delta)
	})
}

// manualMove applies move and publishes the result. The manual hook
// runs before the position mutates, so playback for the old position
// is cancelled before the new one exists. No-op moves, such as
// clamped navigation at a document edge, emit nothing.
func (c *Cursor) manualMove(move func(*Document, Position) Position) Position {
	c.mu.Lock()
	old := c.pos
	next := c.doc.ClampToValid(move(c.doc, old))
	if next == old {
		c.mu.Unlock()
		return old
	}
	if c.onManual != nil {
		c.onManual()
	}
	c.pos = next
	subs := c.subscribers()
	c.mu.Unlock()

	notify(subs, PositionChanged{Old: old, New: next, Manual: true})
	return next
}

func (c *Cursor) subscribers() []func(PositionChanged) {
	subs := make([]func(PositionChanged), len(c.onChange))
	copy(subs, c.onChange)
	return subs
}

func notify(subs []func(PositionChanged), ev PositionChanged) {
	for _, fn := range subs {
		fn(ev)
	}
}

package ui

import (
	"strings"

	runewidth "github.com/mattn/go-runewidth"

	"github.com/dgnsrekt/lector/reading"
)

// layout is the bridge between position space and screen space. It
// wraps every sentence into width-bounded lines of words, each word
// tagged with the sentence it belongs to, so the reader can highlight
// the spoken sentence, resolve a mouse click back to a position, and
// ask which lines a sentence occupies for auto-scrolling. Built once
// per document and width; rebuilt on resize and reload.
type layout struct {
	width int
	lines []layoutLine

	start map[reading.Position]int // first line of each sentence
	end   map[reading.Position]int // last line of each sentence
}

const minLayoutWidth = 16

type lineKind int

const (
	blankLine lineKind = iota
	titleLine
	textLine
)

type layoutLine struct {
	kind    lineKind
	chapter int
	title   string       // titleLine only
	words   []layoutWord // textLine only
}

type layoutWord struct {
	text  string
	width int
	pos   reading.Position
	verse bool // leading verse marker, rendered dimmed
}

func newLayout(doc *reading.Document, width int) *layout {
	if width < minLayoutWidth {
		width = minLayoutWidth
	}
	l := &layout{
		width: width,
		start: make(map[reading.Position]int),
		end:   make(map[reading.Position]int),
	}
	for ci, ch := range doc.Chapters() {
		l.addChapter(ci, ch)
	}
	return l
}

func (l *layout) addChapter(ci int, ch reading.Chapter) {
	if len(l.lines) > 0 {
		l.push(layoutLine{kind: blankLine, chapter: ci})
	}
	if ch.Title != "" {
		l.push(layoutLine{kind: titleLine, chapter: ci, title: ch.Title})
		l.push(layoutLine{kind: blankLine, chapter: ci})
	}
	for pi, para := range ch.Paragraphs {
		if pi > 0 {
			l.push(layoutLine{kind: blankLine, chapter: ci})
		}
		l.addParagraph(ci, pi, para)
	}
}

func (l *layout) addParagraph(ci, pi int, para reading.Paragraph) {
	cur := layoutLine{kind: textLine, chapter: ci}
	curWidth := 0

	flush := func() {
		if len(cur.words) > 0 {
			l.push(cur)
			cur = layoutLine{kind: textLine, chapter: ci}
			curWidth = 0
		}
	}

	for si, sent := range para.Sentences {
		pos := reading.Position{Chapter: ci, Paragraph: pi, Sentence: si}
		words := strings.Fields(sent.Display)

		if len(words) == 0 {
			// Placeholder sentence of an empty chapter. Anchor it to
			// the latest line so chapter jumps still scroll somewhere.
			at := len(l.lines) - 1
			if at < 0 {
				at = 0
			}
			l.start[pos], l.end[pos] = at, at
			continue
		}

		for wi, text := range words {
			w := layoutWord{
				text:  text,
				width: runewidth.StringWidth(text),
				pos:   pos,
				verse: wi == 0 && sent.Verse != "" && text == sent.Verse,
			}
			if curWidth > 0 && curWidth+1+w.width > l.width {
				flush()
			}
			at := len(l.lines) // index cur will occupy once pushed
			if curWidth > 0 {
				curWidth++
			}
			cur.words = append(cur.words, w)
			curWidth += w.width

			if _, seen := l.start[pos]; !seen {
				l.start[pos] = at
			}
			l.end[pos] = at
		}
	}
	flush()
}

func (l *layout) push(ln layoutLine) {
	l.lines = append(l.lines, ln)
}

func (l *layout) lineCount() int {
	return len(l.lines)
}

// span returns the wrapped-line range [start, end] the sentence at p
// occupies.
func (l *layout) span(p reading.Position) (start, end int, ok bool) {
	start, ok = l.start[p]
	if !ok {
		return 0, 0, false
	}
	return start, l.end[p], true
}

// positionAt resolves a click at screen line and column to the
// sentence under it. Clicks on a chapter title land on its first
// sentence; clicks on blank lines resolve to nothing.
func (l *layout) positionAt(line, col int) (reading.Position, bool) {
	if line < 0 || line >= len(l.lines) {
		return reading.Position{}, false
	}
	ln := l.lines[line]
	if ln.kind == titleLine {
		return l.firstTextAfter(line)
	}
	if ln.kind != textLine || len(ln.words) == 0 {
		return reading.Position{}, false
	}

	x := 0
	for _, w := range ln.words {
		if col < x+w.width {
			return w.pos, true
		}
		x += w.width + 1
	}
	return ln.words[len(ln.words)-1].pos, true
}

// topVisible returns the first sentence at or below the given top
// line, for the jump-to-top-visible key.
func (l *layout) topVisible(top int) (reading.Position, bool) {
	if top < 0 {
		top = 0
	}
	for i := top; i < len(l.lines); i++ {
		if ln := l.lines[i]; ln.kind == textLine && len(ln.words) > 0 {
			return ln.words[0].pos, true
		}
	}
	return reading.Position{}, false
}

// sentencesInView counts distinct sentences intersecting the window,
// which paging uses as its step size.
func (l *layout) sentencesInView(top, height int) int {
	seen := make(map[reading.Position]bool)
	for i := top; i < top+height && i < len(l.lines); i++ {
		if i < 0 {
			continue
		}
		for _, w := range l.lines[i].words {
			seen[w.pos] = true
		}
	}
	return len(seen)
}

func (l *layout) firstTextAfter(line int) (reading.Position, bool) {
	for i := line + 1; i < len(l.lines); i++ {
		if ln := l.lines[i]; ln.kind == textLine && len(ln.words) > 0 {
			return ln.words[0].pos, true
		}
	}
	return reading.Position{}, false
}

// render produces the full document with the current sentence
// highlighted. The viewport clips it to the visible window.
func (l *layout) render(current reading.Position) string {
	var b strings.Builder
	for i, ln := range l.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch ln.kind {
		case titleLine:
			b.WriteString(chapterTitleStyle.Render(ln.title))
		case textLine:
			b.WriteString(renderLine(ln, current))
		}
	}
	return b.String()
}

type wordClass int

const (
	plainWord wordClass = iota
	highlightWord
	verseWord
)

func classOf(w layoutWord, current reading.Position) wordClass {
	switch {
	case w.pos.Equal(current):
		return highlightWord
	case w.verse:
		return verseWord
	default:
		return plainWord
	}
}

// renderLine styles runs of consecutive same-class words together so
// the highlight covers the spaces inside a sentence.
func renderLine(ln layoutLine, current reading.Position) string {
	var b strings.Builder
	var run []string
	cls := plainWord

	flush := func() {
		if len(run) == 0 {
			return
		}
		text := strings.Join(run, " ")
		switch cls {
		case highlightWord:
			text = sentenceStyle.Render(text)
		case verseWord:
			text = verseStyle.Render(text)
		}
		b.WriteString(text)
		run = run[:0]
	}

	for i, w := range ln.words {
		c := classOf(w, current)
		if i > 0 && c != cls {
			flush()
			b.WriteByte(' ')
		}
		cls = c
		run = append(run, w.text)
	}
	flush()
	return b.String()
}

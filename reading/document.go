package reading

import (
	"strings"

	"github.com/dgnsrekt/lector/reading/sentence"
)

// ChapterSource is the parsed input for one chapter: a title and the
// raw paragraph texts in reading order. Document sources produce these;
// Build turns them into an addressable sentence hierarchy.
type ChapterSource struct {
	Title      string
	Paragraphs []string
}

// Sentence is one displayable, speakable span of a paragraph.
type Sentence struct {
	// Display is the text as rendered, leading verse markers intact.
	Display string
	// Speech is the text handed to the TTS engine. Presentation-only
	// artifacts (verse numbers, typographic quotes) are stripped.
	Speech string
	// Verse holds the leading numeric marker when one was recognized,
	// so renderers can style it without re-parsing Display.
	Verse string
}

// Paragraph is an ordered run of sentences.
type Paragraph struct {
	Sentences []Sentence
}

// Chapter is a titled ordered run of paragraphs. Its index in the
// Document is the same index the table of contents, chapter jumps and
// playback all use.
type Chapter struct {
	Title      string
	Paragraphs []Paragraph
}

// Document is the immutable chapter/paragraph/sentence hierarchy for
// one book. It is built once per session and never mutated; every
// navigation query is answered from tables derived at build time.
type Document struct {
	chapters []Chapter
	order    []Position       // every valid position in document order
	ordinals map[Position]int // inverse of order
}

// Build segments every paragraph and assembles the Document. Paragraphs
// that segment to nothing are dropped; a chapter left with no
// paragraphs keeps a single empty placeholder so chapter jumps stay
// valid. An entirely empty input yields ErrEmptyDocument.
func Build(sources []ChapterSource) (*Document, error) {
	doc := &Document{
		ordinals: make(map[Position]int),
	}

	total := 0
	for _, src := range sources {
		ch := Chapter{Title: src.Title}
		for _, text := range src.Paragraphs {
			spans := sentence.Segment(text)
			if len(spans) == 0 {
				continue
			}
			para := Paragraph{Sentences: make([]Sentence, 0, len(spans))}
			for _, sp := range spans {
				para.Sentences = append(para.Sentences, Sentence{
					Display: sp.Display,
					Speech:  sp.Speech,
					Verse:   sp.Verse,
				})
				total++
			}
			ch.Paragraphs = append(ch.Paragraphs, para)
		}
		if len(ch.Paragraphs) == 0 {
			// Placeholder keeps jumpToChapter total for empty chapters.
			ch.Paragraphs = []Paragraph{{Sentences: []Sentence{{}}}}
		}
		doc.chapters = append(doc.chapters, ch)
	}

	if total == 0 {
		return nil, ErrEmptyDocument
	}

	for ci, ch := range doc.chapters {
		for pi, para := range ch.Paragraphs {
			for si := range para.Sentences {
				p := Position{Chapter: ci, Paragraph: pi, Sentence: si}
				doc.ordinals[p] = len(doc.order)
				doc.order = append(doc.order, p)
			}
		}
	}

	return doc, nil
}

// SentenceCount returns the number of sentences in the document.
func (d *Document) SentenceCount() int {
	return len(d.order)
}

// ChapterCount returns the number of chapters.
func (d *Document) ChapterCount() int {
	return len(d.chapters)
}

// Chapters exposes the built hierarchy for rendering. Callers must not
// modify it.
func (d *Document) Chapters() []Chapter {
	return d.chapters
}

// ChapterTitle returns the title of chapter i, clamped into range.
func (d *Document) ChapterTitle(i int) string {
	return d.chapters[clampInt(i, 0, len(d.chapters)-1)].Title
}

// Resolve returns the sentence at p. The second return is false when p
// does not address an existing sentence.
func (d *Document) Resolve(p Position) (Sentence, bool) {
	if _, ok := d.ordinals[p]; !ok {
		return Sentence{}, false
	}
	return d.chapters[p.Chapter].Paragraphs[p.Paragraph].Sentences[p.Sentence], true
}

// Next returns the position one sentence forward, crossing paragraph
// and chapter boundaries. The second return is false at the end of the
// document.
func (d *Document) Next(p Position) (Position, bool) {
	o := d.OrdinalOf(p)
	if o+1 >= len(d.order) {
		return p, false
	}
	return d.order[o+1], true
}

// Previous returns the position one sentence back. The second return
// is false at the start of the document.
func (d *Document) Previous(p Position) (Position, bool) {
	o := d.OrdinalOf(p)
	if o <= 0 {
		return p, false
	}
	return d.order[o-1], true
}

// NextParagraph returns the first sentence of the paragraph after p,
// crossing into the next chapter. False when p is in the last
// paragraph of the document.
func (d *Document) NextParagraph(p Position) (Position, bool) {
	p = d.ClampToValid(p)
	if p.Paragraph+1 < len(d.chapters[p.Chapter].Paragraphs) {
		return Position{Chapter: p.Chapter, Paragraph: p.Paragraph + 1}, true
	}
	if p.Chapter+1 < len(d.chapters) {
		return Position{Chapter: p.Chapter + 1}, true
	}
	return p, false
}

// PreviousParagraph returns the first sentence of the paragraph before
// p, crossing into the previous chapter. False when p is in the first
// paragraph of the document.
func (d *Document) PreviousParagraph(p Position) (Position, bool) {
	p = d.ClampToValid(p)
	if p.Paragraph > 0 {
		return Position{Chapter: p.Chapter, Paragraph: p.Paragraph - 1}, true
	}
	if p.Chapter > 0 {
		c := p.Chapter - 1
		return Position{Chapter: c, Paragraph: len(d.chapters[c].Paragraphs) - 1}, true
	}
	return p, false
}

// ClampToValid maps any position, including negative or past-end
// values, onto the nearest existing sentence. Navigation never errors
// on out-of-range input; it goes through here instead.
func (d *Document) ClampToValid(p Position) Position {
	p.Chapter = clampInt(p.Chapter, 0, len(d.chapters)-1)
	paras := d.chapters[p.Chapter].Paragraphs
	p.Paragraph = clampInt(p.Paragraph, 0, len(paras)-1)
	p.Sentence = clampInt(p.Sentence, 0, len(paras[p.Paragraph].Sentences)-1)
	return p
}

// ChapterStart returns the first sentence of chapter i, clamped into
// range.
func (d *Document) ChapterStart(i int) Position {
	return Position{Chapter: clampInt(i, 0, len(d.chapters)-1)}
}

// ChapterOf returns the chapter index p falls in.
func (d *Document) ChapterOf(p Position) int {
	return d.ClampToValid(p).Chapter
}

// OrdinalOf returns p's index in flat document order, clamping first.
func (d *Document) OrdinalOf(p Position) int {
	return d.ordinals[d.ClampToValid(p)]
}

// AtOrdinal returns the position of the n-th sentence in document
// order, clamping n into range.
func (d *Document) AtOrdinal(n int) Position {
	return d.order[clampInt(n, 0, len(d.order)-1)]
}

// Start returns the first position of the document.
func (d *Document) Start() Position {
	return d.order[0]
}

// End returns the last position of the document.
func (d *Document) End() Position {
	return d.order[len(d.order)-1]
}

// Progress returns how far through the document p is, in [0, 1].
func (d *Document) Progress(p Position) float64 {
	if len(d.order) <= 1 {
		return 1
	}
	return float64(d.OrdinalOf(p)) / float64(len(d.order)-1)
}

// ChapterText returns the display text of chapter i joined into one
// string, paragraph per line. The assistant snapshot uses this as
// surrounding context.
func (d *Document) ChapterText(i int) string {
	ch := d.chapters[clampInt(i, 0, len(d.chapters)-1)]
	var b strings.Builder
	for pi, para := range ch.Paragraphs {
		if pi > 0 {
			b.WriteString("\n")
		}
		for si, s := range para.Sentences {
			if si > 0 && s.Display != "" {
				b.WriteString(" ")
			}
			b.WriteString(s.Display)
		}
	}
	return b.String()
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

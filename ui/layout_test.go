package ui

import (
	"strings"
	"testing"

	"github.com/dgnsrekt/lector/reading"
)

func buildDoc(t *testing.T, sources []reading.ChapterSource) *reading.Document {
	t.Helper()
	doc, err := reading.Build(sources)
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	return doc
}

func TestLayoutSpansFollowDocumentOrder(t *testing.T) {
	doc := buildDoc(t, []reading.ChapterSource{
		{Title: "One", Paragraphs: []string{
			"The first sentence is long enough to wrap over the line. A second one follows it.",
			"A new paragraph starts lower down.",
		}},
		{Title: "Two", Paragraphs: []string{"Closing words."}},
	})
	l := newLayout(doc, 24)

	prevEnd := -1
	p := doc.Start()
	for {
		start, end, ok := l.span(p)
		if !ok {
			t.Fatalf("span(%v) missing", p)
		}
		if start > end {
			t.Errorf("span(%v) = [%d, %d], start past end", p, start, end)
		}
		if start < prevEnd {
			t.Errorf("span(%v) starts at %d, above the previous sentence's end %d", p, start, prevEnd)
		}
		prevEnd = end

		next, ok := doc.Next(p)
		if !ok {
			break
		}
		p = next
	}
}

func TestLayoutRespectsWidth(t *testing.T) {
	doc := buildDoc(t, []reading.ChapterSource{
		{Title: "Wrap", Paragraphs: []string{
			"Many short words in a row so that wrapping has plenty of break points to choose from here.",
		}},
	})
	const width = 20
	l := newLayout(doc, width)

	for i, ln := range l.lines {
		if ln.kind != textLine {
			continue
		}
		w := 0
		for j, word := range ln.words {
			if j > 0 {
				w++
			}
			w += word.width
		}
		if w > width && len(ln.words) > 1 {
			t.Errorf("line %d is %d cells wide, want <= %d", i, w, width)
		}
	}
}

func TestLayoutPositionAt(t *testing.T) {
	doc := buildDoc(t, []reading.ChapterSource{
		{Title: "Log", Paragraphs: []string{"Alpha beta. Gamma delta."}},
	})
	l := newLayout(doc, 40)

	// Lines: title, blank, then one text line.
	if got := l.lineCount(); got != 3 {
		t.Fatalf("lineCount() = %d, want 3", got)
	}

	first := reading.Position{}
	second := reading.Position{Sentence: 1}

	tests := []struct {
		name      string
		line, col int
		want      reading.Position
		ok        bool
	}{
		{"first word", 2, 0, first, true},
		{"end of first sentence", 2, 8, first, true},
		{"second sentence", 2, 13, second, true},
		{"past line end", 2, 200, second, true},
		{"chapter title", 0, 3, first, true},
		{"blank line", 1, 0, reading.Position{}, false},
		{"below document", 40, 0, reading.Position{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.positionAt(tt.line, tt.col)
			if ok != tt.ok {
				t.Fatalf("positionAt(%d, %d) ok = %v, want %v", tt.line, tt.col, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("positionAt(%d, %d) = %v, want %v", tt.line, tt.col, got, tt.want)
			}
		})
	}
}

func TestLayoutVerseMarkerFlagged(t *testing.T) {
	doc := buildDoc(t, []reading.ChapterSource{
		{Title: "Psalms", Paragraphs: []string{"12 In the beginning was the word."}},
	})
	l := newLayout(doc, 60)

	var found bool
	for _, ln := range l.lines {
		for i, w := range ln.words {
			if w.verse {
				found = true
				if w.text != "12" {
					t.Errorf("verse word = %q, want %q", w.text, "12")
				}
				if i != 0 {
					t.Errorf("verse word at index %d, want 0", i)
				}
			}
		}
	}
	if !found {
		t.Error("no verse-flagged word in layout")
	}
}

func TestLayoutEmptyChapterAnchored(t *testing.T) {
	doc := buildDoc(t, []reading.ChapterSource{
		{Title: "Full", Paragraphs: []string{"Some text."}},
		{Title: "Empty"},
	})
	l := newLayout(doc, 40)

	placeholder := reading.Position{Chapter: 1}
	start, end, ok := l.span(placeholder)
	if !ok {
		t.Fatal("placeholder sentence has no span")
	}
	if start != end {
		t.Errorf("placeholder span = [%d, %d], want a single line", start, end)
	}
	if start < 0 || start >= l.lineCount() {
		t.Errorf("placeholder anchored at %d, outside the layout", start)
	}
}

func TestLayoutTopVisible(t *testing.T) {
	doc := buildDoc(t, []reading.ChapterSource{
		{Title: "Log", Paragraphs: []string{"Alpha beta.", "Gamma delta."}},
	})
	l := newLayout(doc, 40)
	// Lines: title, blank, para one, blank, para two.

	pos, ok := l.topVisible(0)
	if !ok || !pos.Equal(reading.Position{}) {
		t.Errorf("topVisible(0) = %v, %v, want first sentence", pos, ok)
	}

	pos, ok = l.topVisible(3)
	want := reading.Position{Paragraph: 1}
	if !ok || !pos.Equal(want) {
		t.Errorf("topVisible(3) = %v, %v, want %v", pos, ok, want)
	}

	if _, ok := l.topVisible(99); ok {
		t.Error("topVisible past the document reported a sentence")
	}
}

func TestLayoutSentencesInView(t *testing.T) {
	doc := buildDoc(t, []reading.ChapterSource{
		{Title: "Log", Paragraphs: []string{"Alpha beta. Gamma delta.", "Epsilon zeta."}},
	})
	l := newLayout(doc, 40)

	if got := l.sentencesInView(0, l.lineCount()); got != 3 {
		t.Errorf("sentencesInView(all) = %d, want 3", got)
	}
	if got := l.sentencesInView(0, 3); got != 2 {
		t.Errorf("sentencesInView(first paragraph) = %d, want 2", got)
	}
}

func TestLayoutRenderCarriesEveryWord(t *testing.T) {
	doc := buildDoc(t, []reading.ChapterSource{
		{Title: "Log", Paragraphs: []string{"Alpha beta. Gamma delta."}},
	})
	l := newLayout(doc, 40)

	out := l.render(reading.Position{})
	for _, word := range []string{"Log", "Alpha", "beta.", "Gamma", "delta."} {
		if !strings.Contains(out, word) {
			t.Errorf("render missing %q:\n%s", word, out)
		}
	}
	if got := strings.Count(out, "\n") + 1; got != l.lineCount() {
		t.Errorf("render has %d lines, layout has %d", got, l.lineCount())
	}
}

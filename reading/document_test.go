package reading

import (
	"errors"
	"strings"
	"testing"
)

func buildTestDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := Build([]ChapterSource{
		{Title: "One", Paragraphs: []string{
			"First sentence. Second sentence.",
			"Third sentence.",
		}},
		{Title: "Two", Paragraphs: []string{
			"Fourth sentence. Fifth sentence. Sixth sentence.",
		}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return doc
}

func TestBuildCounts(t *testing.T) {
	doc := buildTestDocument(t)
	if got := doc.SentenceCount(); got != 6 {
		t.Errorf("SentenceCount = %d, want 6", got)
	}
	if got := doc.ChapterCount(); got != 2 {
		t.Errorf("ChapterCount = %d, want 2", got)
	}
	if got := doc.ChapterTitle(1); got != "Two" {
		t.Errorf("ChapterTitle(1) = %q, want %q", got, "Two")
	}
}

func TestBuildEmptyDocument(t *testing.T) {
	_, err := Build(nil)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Build(nil) error = %v, want ErrEmptyDocument", err)
	}

	_, err = Build([]ChapterSource{{Title: "Blank", Paragraphs: []string{"   ", ""}}})
	if err != nil {
		t.Errorf("Build with blank chapter failed: %v, want placeholder document", err)
	}
}

func TestBuildSkipsEmptyParagraphs(t *testing.T) {
	doc, err := Build([]ChapterSource{
		{Title: "One", Paragraphs: []string{"", "Only sentence here.", "   "}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := doc.SentenceCount(); got != 1 {
		t.Errorf("SentenceCount = %d, want 1", got)
	}
	s, ok := doc.Resolve(Position{})
	if !ok || s.Display != "Only sentence here." {
		t.Errorf("Resolve(start) = %q, %v", s.Display, ok)
	}
}

func TestResolveAndClamp(t *testing.T) {
	doc := buildTestDocument(t)

	tests := []struct {
		name string
		in   Position
		want Position
	}{
		{"valid stays", Position{0, 1, 0}, Position{0, 1, 0}},
		{"negative chapter", Position{-3, 0, 0}, Position{0, 0, 0}},
		{"negative all", Position{-1, -1, -1}, Position{0, 0, 0}},
		{"chapter past end", Position{9, 0, 0}, Position{1, 0, 0}},
		{"paragraph past end", Position{0, 7, 0}, Position{0, 1, 0}},
		{"sentence past end", Position{1, 0, 99}, Position{1, 0, 2}},
		{"everything past end", Position{9, 9, 9}, Position{1, 0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := doc.ClampToValid(tt.in)
			if got != tt.want {
				t.Errorf("ClampToValid(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if _, ok := doc.Resolve(got); !ok {
				t.Errorf("Resolve(%v) not defined after clamp", got)
			}
		})
	}
}

func TestNextVisitsEverySentenceOnce(t *testing.T) {
	doc := buildTestDocument(t)

	seen := map[Position]int{}
	p := doc.Start()
	seen[p]++
	for {
		next, ok := doc.Next(p)
		if !ok {
			break
		}
		if next.Compare(p) <= 0 {
			t.Fatalf("Next(%v) = %v did not move forward", p, next)
		}
		p = next
		seen[p]++
	}

	if p != doc.End() {
		t.Errorf("walk ended at %v, want %v", p, doc.End())
	}
	if len(seen) != doc.SentenceCount() {
		t.Errorf("walk visited %d positions, want %d", len(seen), doc.SentenceCount())
	}
	for pos, n := range seen {
		if n != 1 {
			t.Errorf("position %v visited %d times", pos, n)
		}
	}
}

func TestPreviousInvertsNext(t *testing.T) {
	doc := buildTestDocument(t)

	p := doc.Start()
	for {
		next, ok := doc.Next(p)
		if !ok {
			break
		}
		back, ok := doc.Previous(next)
		if !ok || back != p {
			t.Errorf("Previous(Next(%v)) = %v, %v, want %v", p, back, ok, p)
		}
		p = next
	}

	if _, ok := doc.Previous(doc.Start()); ok {
		t.Error("Previous(start) reported a position")
	}
	if _, ok := doc.Next(doc.End()); ok {
		t.Error("Next(end) reported a position")
	}
}

func TestParagraphNavigation(t *testing.T) {
	doc := buildTestDocument(t)

	tests := []struct {
		name   string
		from   Position
		next   bool
		want   Position
		wantOK bool
	}{
		{"next within chapter", Position{0, 0, 1}, true, Position{0, 1, 0}, true},
		{"next crosses chapter", Position{0, 1, 0}, true, Position{1, 0, 0}, true},
		{"next at last paragraph", Position{1, 0, 2}, true, Position{1, 0, 2}, false},
		{"previous within chapter", Position{0, 1, 0}, false, Position{0, 0, 0}, true},
		{"previous crosses chapter", Position{1, 0, 1}, false, Position{0, 1, 0}, true},
		{"previous at first paragraph", Position{0, 0, 1}, false, Position{0, 0, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Position
			var ok bool
			if tt.next {
				got, ok = doc.NextParagraph(tt.from)
			} else {
				got, ok = doc.PreviousParagraph(tt.from)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestChapterQueries(t *testing.T) {
	doc := buildTestDocument(t)

	if got := doc.ChapterStart(1); got != (Position{1, 0, 0}) {
		t.Errorf("ChapterStart(1) = %v", got)
	}
	if got := doc.ChapterStart(-5); got != (Position{0, 0, 0}) {
		t.Errorf("ChapterStart(-5) = %v, want clamped start", got)
	}
	if got := doc.ChapterStart(42); got != (Position{1, 0, 0}) {
		t.Errorf("ChapterStart(42) = %v, want clamped last chapter", got)
	}
	if got := doc.ChapterOf(Position{1, 0, 2}); got != 1 {
		t.Errorf("ChapterOf = %d, want 1", got)
	}
}

func TestOrdinals(t *testing.T) {
	doc := buildTestDocument(t)

	for i := 0; i < doc.SentenceCount(); i++ {
		p := doc.AtOrdinal(i)
		if got := doc.OrdinalOf(p); got != i {
			t.Errorf("OrdinalOf(AtOrdinal(%d)) = %d", i, got)
		}
	}
	if got := doc.AtOrdinal(-10); got != doc.Start() {
		t.Errorf("AtOrdinal(-10) = %v, want start", got)
	}
	if got := doc.AtOrdinal(99); got != doc.End() {
		t.Errorf("AtOrdinal(99) = %v, want end", got)
	}
}

func TestProgress(t *testing.T) {
	doc := buildTestDocument(t)

	if got := doc.Progress(doc.Start()); got != 0 {
		t.Errorf("Progress(start) = %v, want 0", got)
	}
	if got := doc.Progress(doc.End()); got != 1 {
		t.Errorf("Progress(end) = %v, want 1", got)
	}
	mid := doc.Progress(Position{0, 1, 0})
	if mid <= 0 || mid >= 1 {
		t.Errorf("Progress(mid) = %v, want within (0, 1)", mid)
	}
}

func TestChapterText(t *testing.T) {
	doc := buildTestDocument(t)

	text := doc.ChapterText(0)
	for _, want := range []string{"First sentence.", "Second sentence.", "Third sentence."} {
		if !strings.Contains(text, want) {
			t.Errorf("ChapterText(0) missing %q:\n%s", want, text)
		}
	}
}

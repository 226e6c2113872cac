package source

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func htmlChapters(t *testing.T, doc string) []Chapter {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return chaptersFromHTML(root)
}

func TestHTMLChapterSplit(t *testing.T) {
	doc := `<html><body>
		<h1>Part One</h1>
		<p>Opening paragraph.</p>
		<p>Another paragraph.</p>
		<h2>Part Two</h2>
		<p>Closing paragraph.</p>
	</body></html>`

	chapters := htmlChapters(t, doc)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Title != "Part One" || len(chapters[0].Paragraphs) != 2 {
		t.Errorf("chapter 0 = %+v", chapters[0])
	}
	if chapters[1].Title != "Part Two" || len(chapters[1].Paragraphs) != 1 {
		t.Errorf("chapter 1 = %+v", chapters[1])
	}
}

func TestHTMLSkipsFootnoteMachinery(t *testing.T) {
	doc := `<html><head><title>T</title><script>var x = 1;</script></head><body>
		<h1>One</h1>
		<p>Keep this<sup>3</sup> text.</p>
		<p>And<span class="fn">17</span> this.</p>
		<p>42</p>
		<style>p { color: red }</style>
	</body></html>`

	chapters := htmlChapters(t, doc)
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	want := []string{"Keep this text.", "And this."}
	got := chapters[0].Paragraphs
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %q", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestHTMLBareDivText(t *testing.T) {
	// Books rendered div-per-paragraph still split correctly, and a
	// div wrapping real <p> tags is not doubled.
	doc := `<html><body>
		<div>First bare paragraph.</div>
		<div>Second bare paragraph.</div>
		<div><p>Wrapped paragraph.</p></div>
	</body></html>`

	chapters := htmlChapters(t, doc)
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	want := []string{"First bare paragraph.", "Second bare paragraph.", "Wrapped paragraph."}
	got := chapters[0].Paragraphs
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %q", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestHTMLListsAndPre(t *testing.T) {
	doc := `<html><body>
		<ul><li>first</li><li>second</li></ul>
		<pre>line one
line two</pre>
	</body></html>`

	chapters := htmlChapters(t, doc)
	paras := chapters[0].Paragraphs
	if len(paras) != 3 {
		t.Fatalf("expected 3 paragraphs, got %q", paras)
	}
	if paras[0] != "• first" || paras[1] != "• second" {
		t.Errorf("list items = %q", paras[:2])
	}
	if paras[2] != "line one\nline two" {
		t.Errorf("pre block = %q", paras[2])
	}
}

func TestHTMLTitleViaLoad(t *testing.T) {
	doc := `<html><head><title>The Spyglass</title></head><body>
		<p>A paragraph to read.</p>
	</body></html>`
	path := writeBook(t, "spyglass.html", doc)

	book, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if book.Title != "The Spyglass" {
		t.Errorf("expected title from <title>, got %q", book.Title)
	}
	if len(book.Chapters) != 1 || book.Chapters[0].Title != "The Spyglass" {
		t.Errorf("chapters = %+v", book.Chapters)
	}
}

func TestIsFootnoteSpan(t *testing.T) {
	tests := []struct {
		class string
		want  bool
	}{
		{"fn", true},
		{"su", true},
		{"sit", true},
		{"12", true},
		{"footnote-link", true},
		{"sidenote", true},
		{"xref", true},
		{"", false},
		{"calibre1", false},
		{"verse", false},
	}
	for _, tt := range tests {
		n := &html.Node{
			Type: html.ElementNode,
			Data: "span",
			Attr: []html.Attribute{{Key: "class", Val: tt.class}},
		}
		if got := isFootnoteSpan(n); got != tt.want {
			t.Errorf("isFootnoteSpan(class=%q) = %v, expected %v", tt.class, got, tt.want)
		}
	}
}

func TestFootnoteMarkerRE(t *testing.T) {
	matches := []string{"7", "42", "1066", "Page 12", "page 3", "*", "††", "§."}
	for _, s := range matches {
		if !footnoteMarkerRE.MatchString(s) {
			t.Errorf("expected %q to read as a marker", s)
		}
	}
	keeps := []string{"7 sailors", "A page torn out", "Chapter 7", "12345"}
	for _, s := range keeps {
		if footnoteMarkerRE.MatchString(s) {
			t.Errorf("expected %q to read as text", s)
		}
	}
}

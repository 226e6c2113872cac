package source

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// footnoteMarkerRE matches paragraphs that are nothing but a footnote
// or page marker once the surrounding markup is gone.
var footnoteMarkerRE = regexp.MustCompile(`^(?:(?i:page\s+)?\d{1,4}|[*†‡§¶]+)\.?$`)

func parseHTML(path string) ([]Chapter, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	root, err := html.Parse(f)
	if err != nil {
		return nil, "", fmt.Errorf("parse html: %w", err)
	}
	return chaptersFromHTML(root), findTitle(root), nil
}

// chaptersFromHTML splits a parsed document at h1/h2 headings. The
// same walker handles standalone HTML files and EPUB spine documents.
func chaptersFromHTML(root *html.Node) []Chapter {
	w := &htmlWalker{}
	body := findElement(root, "body")
	if body == nil {
		body = root
	}
	w.walk(body)
	w.flushPending()
	w.flushChapter()
	return w.chapters
}

type htmlWalker struct {
	chapters []Chapter
	current  Chapter
	pending  strings.Builder // stray text under div/body, outside any paragraph tag
}

func (w *htmlWalker) flushChapter() {
	if w.current.Title != "" || len(w.current.Paragraphs) > 0 {
		w.chapters = append(w.chapters, w.current)
	}
	w.current = Chapter{}
}

func (w *htmlWalker) flushPending() {
	if w.pending.Len() > 0 {
		w.add(w.pending.String())
		w.pending.Reset()
	}
}

func (w *htmlWalker) add(text string) {
	p := cleanParagraph(text)
	if p == "" || footnoteMarkerRE.MatchString(p) {
		return
	}
	w.current.Paragraphs = append(w.current.Paragraphs, p)
}

func (w *htmlWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.pending.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipElement(n) {
			return
		}
		switch n.Data {
		case "h1", "h2":
			w.flushPending()
			w.flushChapter()
			w.current.Title = cleanParagraph(textContent(n))
			return
		case "h3", "h4", "h5", "h6", "p", "blockquote", "dd", "dt", "td", "th":
			w.flushPending()
			w.add(textContent(n))
			return
		case "li":
			w.flushPending()
			w.add("• " + textContent(n))
			return
		case "pre":
			w.flushPending()
			if t := strings.TrimRight(textContent(n), "\n "); strings.TrimSpace(t) != "" {
				w.current.Paragraphs = append(w.current.Paragraphs, t)
			}
			return
		case "br":
			w.pending.WriteByte(' ')
			return
		case "div", "section", "article", "aside", "figure":
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				w.walk(c)
			}
			// A div holding bare text is a paragraph of its own.
			w.flushPending()
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

// skipElement reports whether an element and its whole subtree carry
// nothing worth reading: scripts, navigation chrome, superscripts and
// the span classes ebooks use for footnote markers.
func skipElement(n *html.Node) bool {
	switch n.Data {
	case "script", "style", "head", "title", "nav", "header", "footer", "sup", "sub":
		return true
	case "span":
		return isFootnoteSpan(n)
	}
	return false
}

func isFootnoteSpan(n *html.Node) bool {
	class := strings.ToLower(attrVal(n, "class"))
	if class == "" {
		return false
	}
	if strings.Contains(class, "footnote") || strings.Contains(class, "note") || strings.Contains(class, "ref") {
		return true
	}
	if len(class) > 3 {
		return false
	}
	switch class {
	case "su", "sit", "bs", "is", "fn":
		return true
	}
	return isDigits(class)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates the text under n, honoring the same skip
// rules as the walker so footnote spans inside a paragraph vanish too.
func textContent(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipElement(n) {
				return
			}
			if n.Data == "br" {
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rec(c)
	}
	return b.String()
}

func findTitle(n *html.Node) string {
	if t := findElement(n, "title"); t != nil {
		return cleanParagraph(rawText(t))
	}
	return ""
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if e := findElement(c, tag); e != nil {
			return e
		}
	}
	return nil
}

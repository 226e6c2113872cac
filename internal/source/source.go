// Package source loads books from disk into titled chapters of plain
// paragraph text. The format is chosen by file extension; anything
// unrecognized is read as plain text. Parsers only split and clean,
// they never interpret: sentence segmentation happens downstream.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrNoContent is returned when a file parses but yields no readable
// paragraphs.
var ErrNoContent = errors.New("no readable text")

// Chapter is a titled run of paragraphs in reading order.
type Chapter struct {
	Title      string
	Paragraphs []string
}

// Book is one loaded document.
type Book struct {
	Title    string
	Path     string
	Chapters []Chapter
}

// Load reads the file at path and splits it into chapters of
// paragraphs. EPUB, PDF, DOCX, HTML and Markdown get structured
// parsers; every other extension is treated as plain text.
func Load(path string) (*Book, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	var (
		chapters []Chapter
		title    string
		err      error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		chapters, title, err = parseEPUB(path)
	case ".pdf":
		chapters, err = parsePDF(path)
	case ".docx":
		chapters, err = parseDOCX(path)
	case ".html", ".htm":
		chapters, title, err = parseHTML(path)
	case ".md", ".markdown":
		chapters, err = parseMarkdown(path)
	default:
		chapters, err = parseText(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}

	book := &Book{Title: titleFromPath(path), Path: path, Chapters: chapters}
	if title != "" {
		book.Title = title
	}
	normalize(book)

	if book.ParagraphCount() == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoContent, filepath.Base(path))
	}
	log.Debug("book loaded",
		"path", path,
		"chapters", len(book.Chapters),
		"paragraphs", book.ParagraphCount())
	return book, nil
}

// ParagraphCount returns the number of paragraphs across all chapters.
func (b *Book) ParagraphCount() int {
	n := 0
	for _, ch := range b.Chapters {
		n += len(ch.Paragraphs)
	}
	return n
}

// normalize drops chapters that carry neither a title nor text and
// fills in missing titles. A book that collapsed to one untitled
// chapter is titled after the file; later untitled chapters are
// numbered sections.
func normalize(book *Book) {
	kept := book.Chapters[:0]
	for _, ch := range book.Chapters {
		if ch.Title == "" && len(ch.Paragraphs) == 0 {
			continue
		}
		kept = append(kept, ch)
	}
	book.Chapters = kept

	if len(book.Chapters) == 1 && book.Chapters[0].Title == "" {
		book.Chapters[0].Title = book.Title
		return
	}
	for i := range book.Chapters {
		if book.Chapters[i].Title == "" {
			book.Chapters[i].Title = fmt.Sprintf("Section %d", i+1)
		}
	}
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var (
	spaceRuns = regexp.MustCompile(`\s+`)

	// Zero-width characters, BOMs and soft hyphens confuse both
	// rendering and speech.
	invisibleChars = strings.NewReplacer(
		"​", "", "‌", "", "‍", "",
		"\uFEFF", "", "­", "",
	)
)

// cleanParagraph flattens a paragraph onto a single line, collapsing
// all whitespace runs.
func cleanParagraph(s string) string {
	return strings.TrimSpace(spaceRuns.ReplaceAllString(invisibleChars.Replace(s), " "))
}

package source

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
)

// parseDOCX walks the document body. Paragraphs styled Heading 1 or 2
// open chapters; deeper headings and everything else read as text.
func parseDOCX(path string) ([]Chapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var chapters []Chapter
	var current Chapter
	flush := func() {
		if current.Title != "" || len(current.Paragraphs) > 0 {
			chapters = append(chapters, current)
		}
	}
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := cleanParagraph(docxText(para))
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 && level <= 2 {
			flush()
			current = Chapter{Title: text}
			continue
		}
		current.Paragraphs = append(current.Paragraphs, text)
	}
	flush()
	return chapters, nil
}

// docxHeadingLevel reads the paragraph style. Word names the styles
// "Heading1" or "heading 1" depending on the producer.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ReplaceAll(strings.ToLower(para.Properties.Style.Val), " ", "")
	n, err := strconv.Atoi(strings.TrimPrefix(style, "heading"))
	if err != nil || !strings.HasPrefix(style, "heading") {
		return 0
	}
	return n
}

func docxText(para *docx.Paragraph) string {
	var b strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				b.WriteString(t.Text)
			}
		}
	}
	return b.String()
}

package source

import (
	"os"
	"regexp"
	"strings"
)

// Chapter headings in plain text. "Chapter 7", "CHAPTER IV" and
// "Ch. 3: Home" style lines open a new chapter, as does a paragraph
// that is nothing but an uppercase roman numeral.
var (
	chapterHeadingRE = regexp.MustCompile(`^(?i:chapter)\s+(?:\d+|[IVXLCDM]+)\b[\s:.\-]*.*$`)
	chapterAbbrevRE  = regexp.MustCompile(`^(?i:ch)\.\s*\d+\s*[:.\-]\s*\S.*$`)
	romanNumeralRE   = regexp.MustCompile(`^(?:[IVXLCDM]{2,}|[IVXLCDM]\.)\.?$`)
)

const (
	maxHeadingRunes = 80
	maxHeadingWords = 10
)

func parseText(path string) ([]Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return chaptersFromText(string(data)), nil
}

func chaptersFromText(content string) []Chapter {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return chaptersFromParagraphs(splitParagraphs(content))
}

// splitParagraphs breaks text on blank lines, joining wrapped lines
// with a space. A file with no blank lines at all is single spaced;
// there each line becomes its own paragraph.
func splitParagraphs(content string) []string {
	var paras []string
	var current strings.Builder
	flush := func() {
		if p := cleanParagraph(current.String()); p != "" {
			paras = append(paras, p)
		}
		current.Reset()
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(line)
	}
	flush()

	if len(paras) <= 1 && strings.Contains(strings.TrimSpace(content), "\n") {
		var lines []string
		for _, line := range strings.Split(content, "\n") {
			if p := cleanParagraph(line); p != "" {
				lines = append(lines, p)
			}
		}
		if len(lines) > 1 {
			paras = lines
		}
	}
	return paras
}

// chaptersFromParagraphs scans paragraphs in order, opening a new
// chapter at every heading. Text before the first heading lands in an
// untitled leading chapter.
func chaptersFromParagraphs(paras []string) []Chapter {
	var chapters []Chapter
	var current Chapter
	flush := func() {
		if current.Title != "" || len(current.Paragraphs) > 0 {
			chapters = append(chapters, current)
		}
	}
	for _, p := range paras {
		if title, ok := headingTitle(p); ok {
			flush()
			current = Chapter{Title: title}
			continue
		}
		current.Paragraphs = append(current.Paragraphs, p)
	}
	flush()
	return chapters
}

// headingTitle reports whether a paragraph is a chapter heading and
// returns the title to use for it. Headings are short single lines;
// anything long enough to be prose is never a heading no matter how
// it starts.
func headingTitle(p string) (string, bool) {
	if len(p) > maxHeadingRunes || len(strings.Fields(p)) > maxHeadingWords {
		return "", false
	}
	if chapterHeadingRE.MatchString(p) || chapterAbbrevRE.MatchString(p) || romanNumeralRE.MatchString(p) {
		return strings.TrimRight(p, " ."), true
	}
	return "", false
}

package source

import (
	"fmt"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// parsePDF reads text row by row. Rows separated by roughly one line
// height belong to the same paragraph; a larger vertical gap, or a
// page break, starts a new one. Chapter splits reuse the plain-text
// heading patterns.
func parsePDF(path string) ([]Chapter, error) {
	f, r, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var paras []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		paras = append(paras, paragraphsFromRows(rows)...)
	}
	return chaptersFromParagraphs(paras), nil
}

// paragraphsFromRows groups one page's rows into paragraphs by their
// vertical spacing. Bare page numbers and footnote markers are
// dropped before grouping so they cannot glue paragraphs together.
func paragraphsFromRows(rows pdflib.Rows) []string {
	type line struct {
		y    int64
		text string
	}
	var lines []line
	for _, row := range rows {
		var b strings.Builder
		for _, word := range row.Content {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(word.S)
		}
		t := cleanParagraph(b.String())
		if t == "" || footnoteMarkerRE.MatchString(t) {
			continue
		}
		lines = append(lines, line{y: row.Position, text: t})
	}
	if len(lines) == 0 {
		return nil
	}

	// The common gap between consecutive rows is the line height.
	// Anything half again as large reads as a paragraph break.
	var gaps []int64
	for i := 1; i < len(lines); i++ {
		if g := lines[i-1].y - lines[i].y; g > 0 {
			gaps = append(gaps, g)
		}
	}
	lineGap := median(gaps)

	var paras []string
	var current strings.Builder
	flush := func() {
		if p := cleanParagraph(current.String()); p != "" {
			paras = append(paras, p)
		}
		current.Reset()
	}
	for i, ln := range lines {
		if i > 0 && lineGap > 0 {
			gap := lines[i-1].y - ln.y
			if gap <= 0 || gap > lineGap*3/2 {
				flush()
			}
		}
		appendLine(&current, ln.text)
	}
	flush()
	return paras
}

// appendLine joins a wrapped row onto the paragraph, rejoining words
// hyphenated across the break.
func appendLine(b *strings.Builder, text string) {
	if b.Len() == 0 {
		b.WriteString(text)
		return
	}
	s := b.String()
	if strings.HasSuffix(s, "-") {
		b.Reset()
		b.WriteString(strings.TrimSuffix(s, "-"))
		b.WriteString(text)
		return
	}
	b.WriteByte(' ')
	b.WriteString(text)
}

func median(vals []int64) int64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]int64, len(vals))
	copy(sorted, vals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}

// Package sentence splits paragraph text into displayable, speakable
// sentence spans.
package sentence

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Span is one segmented sentence. Display keeps the text as written,
// including a leading verse marker; Speech is the cleaned form handed
// to a TTS engine, with the marker and typographic artifacts stripped.
type Span struct {
	Display string
	Speech  string
	Verse   string
}

// Segmenter finds sentence boundaries in paragraph text. Boundaries
// are terminal punctuation at quotation depth zero; marks inside an
// open quotation are internal unless the quotation closes right after
// them and a new sentence visibly starts. Splitting is deterministic:
// the same input always yields the same spans.
type Segmenter struct {
	lang          language.Tag
	abbreviations map[string]bool
}

// New creates a segmenter for English text.
func New() *Segmenter {
	return ForLanguage(language.English)
}

// ForLanguage creates a segmenter with the abbreviation set for the
// given language hint. Languages without a curated set fall back to
// boundary rules only.
func ForLanguage(lang language.Tag) *Segmenter {
	s := &Segmenter{lang: lang}
	if base, _ := lang.Base(); base.String() == "en" {
		s.abbreviations = englishAbbreviations()
	} else {
		s.abbreviations = map[string]bool{}
	}
	return s
}

var defaultSegmenter = New()

// Segment splits text with the default English segmenter.
func Segment(text string) []Span {
	return defaultSegmenter.Segment(text)
}

// Segment splits one paragraph into sentence spans. Whitespace runs are
// collapsed, spans are trimmed and empty spans dropped. Joining the
// resulting Display texts with single spaces reproduces the collapsed
// input.
func (s *Segmenter) Segment(text string) []Span {
	collapsed := collapseWhitespace(norm.NFC.String(text))
	if collapsed == "" {
		return nil
	}

	runes := []rune(collapsed)
	spans := make([]Span, 0, 4)

	emit := func(start, end int) {
		display := strings.TrimSpace(string(runes[start:end]))
		if display == "" {
			return
		}
		verse, rest := splitVerseMarker(display)
		spans = append(spans, Span{
			Display: display,
			Speech:  cleanSpeech(rest),
			Verse:   verse,
		})
	}

	q := quoteState{}
	last := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if isQuoteRune(r) {
			q = q.observe(runes, i)
			continue
		}
		if !isTerminal(r) {
			continue
		}
		end, nq, ok := s.boundaryAfter(runes, i, last, q)
		if !ok {
			continue
		}
		emit(last, end)
		q = nq
		last = end
		i = end - 1
	}
	if last < len(runes) {
		emit(last, len(runes))
	}

	return spans
}

// boundaryAfter decides whether the terminal mark at i ends a
// sentence. On success it returns the index one past the sentence
// (after any closing quotes and brackets) and the quote state after
// consuming them.
func (s *Segmenter) boundaryAfter(runes []rune, i, spanStart int, q quoteState) (int, quoteState, bool) {
	// Collapse a run of terminal marks ("?!", "...") into one candidate.
	j := i
	for j+1 < len(runes) && isTerminal(runes[j+1]) {
		j++
	}
	end := j + 1

	// Suppression heuristics apply to a lone period.
	if runes[i] == '.' && j == i {
		if s.abbreviationBefore(runes, i) {
			return 0, q, false
		}
		if decimalAt(runes, i) {
			return 0, q, false
		}
		if initialBefore(runes, i) {
			return 0, q, false
		}
		if numberedListMarker(runes, i, spanStart) {
			return 0, q, false
		}
	}

	// Closing quotation marks belong to the sentence they end.
	nq := q
	closedQuote := false
	for end < len(runes) && nq.closerAt(runes, end) {
		nq = nq.observe(runes, end)
		end++
		closedQuote = true
	}
	for end < len(runes) && (runes[end] == ')' || runes[end] == ']') {
		end++
	}

	// Still inside a quotation: internal punctuation, not a boundary.
	if nq.depth() > 0 {
		return 0, q, false
	}

	if end >= len(runes) {
		return end, nq, true
	}
	if !unicode.IsSpace(runes[end]) {
		return 0, q, false
	}

	k := end
	for k < len(runes) && unicode.IsSpace(runes[k]) {
		k++
	}
	if k >= len(runes) {
		return end, nq, true
	}
	next := runes[k]

	if q.depth() > 0 || closedQuote {
		// Dialogue only splits when a new sentence visibly starts after
		// the closing quote. "me! me! me!" followed by lowercase text
		// stays one sentence.
		if unicode.IsUpper(next) || unicode.IsDigit(next) || isOpenerRune(next) {
			return end, nq, true
		}
		return 0, q, false
	}

	if runes[j] == '!' || runes[j] == '?' || runes[j] == '…' {
		return end, nq, true
	}
	if unicode.IsUpper(next) || unicode.IsDigit(next) || isOpenerRune(next) {
		return end, nq, true
	}
	return 0, q, false
}

// abbreviationBefore reports whether the word ending at the period at
// pos is a known abbreviation or a multi-part one like "Ph.D".
func (s *Segmenter) abbreviationBefore(runes []rune, pos int) bool {
	start := pos - 1
	for start >= 0 && !unicode.IsSpace(runes[start]) {
		start--
	}
	if start+1 >= pos {
		return false
	}
	word := strings.ToLower(string(runes[start+1 : pos]))
	if s.abbreviations[word] || s.abbreviations[word+"."] {
		return true
	}
	// Multi-dot abbreviations (U.S., Ph.D) never end a sentence here,
	// but dotted numbers (3.14159) are not abbreviations.
	if strings.Contains(word, ".") && strings.IndexFunc(word, unicode.IsLetter) >= 0 {
		return true
	}
	return false
}

// decimalAt reports whether the period at pos sits between two digits.
func decimalAt(runes []rune, pos int) bool {
	return pos > 0 && pos+1 < len(runes) &&
		unicode.IsDigit(runes[pos-1]) && unicode.IsDigit(runes[pos+1])
}

// initialBefore reports whether the period at pos follows a
// single-letter initial that introduces another capitalized word, as
// in "J. K. Rowling".
func initialBefore(runes []rune, pos int) bool {
	if pos < 1 || !unicode.IsUpper(runes[pos-1]) {
		return false
	}
	if pos >= 2 && !unicode.IsSpace(runes[pos-2]) {
		return false
	}
	if pos+2 >= len(runes) {
		return false
	}
	return unicode.IsSpace(runes[pos+1]) && unicode.IsUpper(runes[pos+2])
}

// numberedListMarker reports whether the period at pos ends a short
// bare number at the start of the span, as in "3. And God said". The
// marker stays attached to its sentence instead of becoming one.
func numberedListMarker(runes []rune, pos, spanStart int) bool {
	start := pos - 1
	for start >= spanStart && unicode.IsDigit(runes[start]) {
		start--
	}
	digits := pos - 1 - start
	if digits == 0 || digits > 3 {
		return false
	}
	for k := spanStart; k <= start; k++ {
		if !unicode.IsSpace(runes[k]) {
			return false
		}
	}
	return true
}

// quoteState tracks quotation nesting while scanning. Straight double
// quotes toggle; curly doubles and singles nest. A right single quote
// between letters is an apostrophe, not a closer.
type quoteState struct {
	straight bool
	curly    int
	single   int
}

func (q quoteState) depth() int {
	d := q.curly + q.single
	if q.straight {
		d++
	}
	return d
}

func (q quoteState) observe(runes []rune, i int) quoteState {
	switch runes[i] {
	case '"':
		q.straight = !q.straight
	case '“': // left double
		q.curly++
	case '”': // right double
		if q.curly > 0 {
			q.curly--
		}
	case '‘': // left single
		q.single++
	case '’': // right single
		if q.single > 0 && !apostropheAt(runes, i) {
			q.single--
		}
	}
	return q
}

func (q quoteState) closerAt(runes []rune, i int) bool {
	switch runes[i] {
	case '"':
		return q.straight
	case '”':
		return q.curly > 0
	case '’':
		return q.single > 0 && !apostropheAt(runes, i)
	}
	return false
}

func apostropheAt(runes []rune, i int) bool {
	return i > 0 && i+1 < len(runes) &&
		unicode.IsLetter(runes[i-1]) && unicode.IsLetter(runes[i+1])
}

func isQuoteRune(r rune) bool {
	switch r {
	case '"', '“', '”', '‘', '’':
		return true
	}
	return false
}

func isOpenerRune(r rune) bool {
	switch r {
	case '"', '“', '‘', '(', '[':
		return true
	}
	return false
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

var verseMarkerRegex = regexp.MustCompile(`^(\d{1,3})\s+(.+)$`)

// splitVerseMarker recognizes a leading bare verse number. The marker
// stays in the display text; speech starts at the following word. A
// number opening an ordinary sentence ("12 angry men…") is kept,
// because verse text continues with a capital.
func splitVerseMarker(display string) (verse, rest string) {
	m := verseMarkerRegex.FindStringSubmatch(display)
	if m == nil {
		return "", display
	}
	r := []rune(m[2])
	if len(r) == 0 || !(unicode.IsUpper(r[0]) || isOpenerRune(r[0])) {
		return "", display
	}
	return m[1], m[2]
}

var speechReplacer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
	"—", " - ",
	"–", " - ",
	"…", "...",
	" ", " ",
)

// cleanSpeech normalizes typography so engines receive plain ASCII
// punctuation.
func cleanSpeech(text string) string {
	return collapseWhitespace(speechReplacer.Replace(text))
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

var (
	digitRunRegex   = regexp.MustCompile(`\d+`)
	pausePunctRegex = regexp.MustCompile(`[,;:\-()]`)
)

// EstimateDuration estimates speaking time for text at roughly 150
// words per minute, slowed for numbers, pause punctuation and long
// words. Used when an engine does not report audio duration.
func EstimateDuration(text string) time.Duration {
	words := strings.Fields(text)
	count := len(words)
	if count == 0 {
		count = 1
	}

	complexity := 0.0
	complexity += float64(len(digitRunRegex.FindAllString(text, -1))) * 0.02
	complexity += float64(len(pausePunctRegex.FindAllString(text, -1))) * 0.01
	long := 0
	for _, w := range words {
		if len(w) > 10 {
			long++
		}
	}
	complexity += float64(long) / float64(count+1) * 0.1
	if complexity > 0.5 {
		complexity = 0.5
	}

	rate := 150.0 * (1.0 - complexity*0.2)
	seconds := float64(count) * 60.0 / rate
	return time.Duration(seconds * float64(time.Second))
}

func englishAbbreviations() map[string]bool {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "rev", "hon", "sr", "jr",
		"cpl", "sgt", "gen", "col", "capt", "lt", "pvt",
		"ph.d", "m.d", "b.a", "m.a", "b.s",
		"llc", "inc", "ltd", "co", "corp",
		"i.e", "e.g", "etc", "vs", "viz", "cf", "al",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"mon", "tue", "wed", "thu", "fri", "sat", "sun",
		"st", "rd", "ave", "blvd", "ln", "ct",
		"u.s", "u.k", "u.n", "e.u", "n.y", "l.a",
		"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi", "yd",
		"hr", "hrs", "min", "mins", "sec", "secs",
		"pg", "pp", "vol", "vols", "no", "nos", "ed", "eds",
	}

	m := make(map[string]bool, len(abbrevs)*2)
	for _, abbrev := range abbrevs {
		m[abbrev] = true
		if !strings.Contains(abbrev, ".") {
			m[abbrev+"."] = true
		}
	}
	return m
}

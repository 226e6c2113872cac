package reading

import "fmt"

// Position addresses a single sentence inside a Document as
// (chapter, paragraph, sentence), all 0-based. The zero value is the
// first sentence of the book. Positions are ordered by chapter, then
// paragraph, then sentence.
type Position struct {
	Chapter   int `json:"chapter"`
	Paragraph int `json:"paragraph"`
	Sentence  int `json:"sentence"`
}

// Compare returns -1, 0 or 1 depending on whether p sorts before,
// equal to or after other.
func (p Position) Compare(other Position) int {
	if p.Chapter != other.Chapter {
		return sign(p.Chapter - other.Chapter)
	}
	if p.Paragraph != other.Paragraph {
		return sign(p.Paragraph - other.Paragraph)
	}
	return sign(p.Sentence - other.Sentence)
}

// Less reports whether p comes before other in document order.
func (p Position) Less(other Position) bool {
	return p.Compare(other) < 0
}

// Equal reports whether both positions address the same sentence.
func (p Position) Equal(other Position) bool {
	return p == other
}

// String returns the position as "chapter:paragraph:sentence".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d:%d", p.Chapter, p.Paragraph, p.Sentence)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

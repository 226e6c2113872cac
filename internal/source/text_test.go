package source

import (
	"strings"
	"testing"
)

func TestSplitParagraphs(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\n   \nThird paragraph."
	got := splitParagraphs(input)
	want := []string{
		"First paragraph line one. First paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitParagraphsSingleSpaced(t *testing.T) {
	// No blank line anywhere: the file is single spaced and each line
	// stands alone.
	got := splitParagraphs("Line one.\nLine two.\nLine three.")
	if len(got) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d: %q", len(got), got)
	}
	if got[1] != "Line two." {
		t.Errorf("expected %q, got %q", "Line two.", got[1])
	}
}

func TestChaptersFromTextHeadings(t *testing.T) {
	content := strings.Join([]string{
		"Chapter 1",
		"",
		"It was the best of times.",
		"",
		"It was the worst of times.",
		"",
		"CHAPTER II",
		"",
		"We had everything before us.",
	}, "\n")

	chapters := chaptersFromText(content)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Title != "Chapter 1" {
		t.Errorf("expected title %q, got %q", "Chapter 1", chapters[0].Title)
	}
	if len(chapters[0].Paragraphs) != 2 {
		t.Errorf("expected 2 paragraphs in chapter 0, got %d", len(chapters[0].Paragraphs))
	}
	if chapters[1].Title != "CHAPTER II" {
		t.Errorf("expected title %q, got %q", "CHAPTER II", chapters[1].Title)
	}
	if len(chapters[1].Paragraphs) != 1 {
		t.Errorf("expected 1 paragraph in chapter 1, got %d", len(chapters[1].Paragraphs))
	}
}

func TestChaptersFromTextPreamble(t *testing.T) {
	content := "A note from the editor.\n\nChapter 1\n\nThe story begins."
	chapters := chaptersFromText(content)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Title != "" {
		t.Errorf("expected untitled preamble, got title %q", chapters[0].Title)
	}
	if chapters[0].Paragraphs[0] != "A note from the editor." {
		t.Errorf("preamble paragraph = %q", chapters[0].Paragraphs[0])
	}
}

func TestChaptersFromTextCRLF(t *testing.T) {
	content := "Chapter 1\r\n\r\nWindows line endings.\r\n\r\nStill split right."
	chapters := chaptersFromText(content)
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	if len(chapters[0].Paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %q", len(chapters[0].Paragraphs), chapters[0].Paragraphs)
	}
}

func TestHeadingTitle(t *testing.T) {
	tests := []struct {
		para      string
		isHeading bool
		title     string
	}{
		{"Chapter 1", true, "Chapter 1"},
		{"CHAPTER 42", true, "CHAPTER 42"},
		{"chapter 7: The Gate", true, "chapter 7: The Gate"},
		{"Chapter IX - Homecoming", true, "Chapter IX - Homecoming"},
		{"Ch. 3: Home", true, "Ch. 3: Home"},
		{"XII", true, "XII"},
		{"XII.", true, "XII"},
		{"V.", true, "V"},

		// A lone "I" is dialogue, not a heading.
		{"I", false, ""},
		{"The chapter on rigging was the longest.", false, ""},
		{"Chapters 1 through 3 cover the basics.", false, ""},
		{"In Chapter 2 we met the captain.", false, ""},
		// Starts like a heading but runs on like prose.
		{"Chapter 4 of the manual explains how the bilge pump is taken apart and cleaned.", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.para, func(t *testing.T) {
			title, ok := headingTitle(tt.para)
			if ok != tt.isHeading {
				t.Fatalf("headingTitle(%q) = %v, expected %v", tt.para, ok, tt.isHeading)
			}
			if ok && title != tt.title {
				t.Errorf("expected title %q, got %q", tt.title, title)
			}
		})
	}
}

func TestChaptersFromTextNoHeadings(t *testing.T) {
	chapters := chaptersFromText("Just a paragraph.\n\nAnd another one.")
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	if chapters[0].Title != "" {
		t.Errorf("expected untitled chapter, got %q", chapters[0].Title)
	}
	if len(chapters[0].Paragraphs) != 2 {
		t.Errorf("expected 2 paragraphs, got %d", len(chapters[0].Paragraphs))
	}
}

package source

import (
	"bytes"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseMarkdown walks the goldmark AST. Level 1 and 2 headings open
// chapters; deeper headings read as ordinary paragraphs. Code blocks
// keep their line structure, list items become bulleted paragraphs.
func parseMarkdown(path string) ([]Chapter, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var chapters []Chapter
	var current Chapter
	flush := func() {
		if current.Title != "" || len(current.Paragraphs) > 0 {
			chapters = append(chapters, current)
		}
	}
	add := func(s string) {
		if p := cleanParagraph(s); p != "" {
			current.Paragraphs = append(current.Paragraphs, p)
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level <= 2 {
				flush()
				current = Chapter{Title: cleanParagraph(inlineText(node, src))}
				continue
			}
			add(inlineText(node, src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if code := blockLines(n, src); strings.TrimSpace(code) != "" {
				current.Paragraphs = append(current.Paragraphs, code)
			}
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				add("• " + inlineText(item, src))
			}
		case *ast.ThematicBreak, *ast.HTMLBlock:
			// Dividers and raw HTML have nothing to read aloud.
		default:
			add(inlineText(n, src))
		}
	}
	flush()
	return chapters, nil
}

// inlineText collects the rendered text of a node, dropping markdown
// syntax. Link and emphasis nodes contribute their inner text only.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
		if n.Type() == ast.TypeBlock {
			buf.WriteByte(' ')
		}
	}
	walk(n)
	return buf.String()
}

// blockLines returns the raw source lines of a block node. Code keeps
// its newlines so indentation survives to the screen.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}

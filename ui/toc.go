package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// tocEntry is one chapter row, possibly narrowed by the filter.
type tocEntry struct {
	chapter int    // index into the document's chapter order
	title   string
	matched []int // byte offsets of filter matches, for underlining
}

// tocModel is the table-of-contents overlay. The list narrows with
// fuzzy matching as the filter is typed; confirming an entry jumps
// through the same chapter index playback uses.
type tocModel struct {
	common  *commonModel
	input   textinput.Model
	titles  []string
	entries []tocEntry
	cursor  int
	offset  int
}

func newTOCModel(common *commonModel, titles []string, current int) tocModel {
	ti := textinput.New()
	ti.Placeholder = "filter chapters"
	ti.Prompt = "/ "
	ti.Focus()

	m := tocModel{
		common: common,
		input:  ti,
		titles: titles,
	}
	m.entries = filterChapters("", titles)
	if current >= 0 && current < len(m.entries) {
		m.cursor = current
	}
	m.scrollToCursor()
	return m
}

// filterChapters narrows titles to those fuzzy-matching the query, in
// match-quality order. An empty query keeps every chapter in document
// order.
func filterChapters(query string, titles []string) []tocEntry {
	query = strings.TrimSpace(query)
	if query == "" {
		entries := make([]tocEntry, len(titles))
		for i, t := range titles {
			entries[i] = tocEntry{chapter: i, title: t}
		}
		return entries
	}

	matches := fuzzy.Find(query, titles)
	entries := make([]tocEntry, 0, len(matches))
	for _, match := range matches {
		entries = append(entries, tocEntry{
			chapter: match.Index,
			title:   match.Str,
			matched: match.MatchedIndexes,
		})
	}
	return entries
}

func (m tocModel) update(msg tea.Msg) (tocModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch keyMsg.String() {
	case "esc":
		if m.input.Value() != "" {
			m.input.SetValue("")
			m.refilter()
			return m, nil
		}
		return m, dismissOverlay

	case "enter":
		if m.cursor < len(m.entries) {
			chapter := m.entries[m.cursor].chapter
			return m, func() tea.Msg { return tocChosenMsg{chapter: chapter} }
		}
		return m, dismissOverlay

	case "up", "ctrl+p":
		m.moveCursor(-1)
		return m, nil

	case "down", "ctrl+n":
		m.moveCursor(1)
		return m, nil

	default:
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.refilter()
		}
		return m, cmd
	}
}

func (m *tocModel) refilter() {
	m.entries = filterChapters(m.input.Value(), m.titles)
	m.cursor = 0
	m.offset = 0
}

func (m *tocModel) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > len(m.entries)-1 {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scrollToCursor()
}

func (m *tocModel) scrollToCursor() {
	rows := m.listHeight()
	if rows <= 0 {
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m tocModel) listHeight() int {
	h := m.common.height - 9 // border, padding, title, filter, count
	if h < 3 {
		h = 3
	}
	if h > len(m.titles) && len(m.titles) > 0 {
		h = len(m.titles)
	}
	return h
}

func (m tocModel) view() string {
	width := min(m.common.width-6, 68)
	if width < 24 {
		width = 24
	}
	inner := width - 6 // overlay padding and selection marker

	var b strings.Builder
	b.WriteString(overlayTitleStyle.Render("Contents"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	rows := m.listHeight()
	if len(m.entries) == 0 {
		b.WriteString(subtleStyle.Render("no matching chapters"))
		b.WriteByte('\n')
	}
	for i := m.offset; i < m.offset+rows && i < len(m.entries); i++ {
		entry := m.entries[i]
		title := truncateTitle(entry.title, inner)
		rendered := underlineMatches(title, entry.matched)
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("▌ "))
			b.WriteString(selectedItemStyle.Render(rendered))
		} else {
			b.WriteString("  ")
			b.WriteString(rendered)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("%d chapters · enter jumps · esc closes", len(m.titles))))

	box := overlayStyle.Width(width).Render(b.String())
	return lipgloss.Place(m.common.width, m.common.height, lipgloss.Center, lipgloss.Center, box)
}

func dismissOverlay() tea.Msg {
	return overlayDismissMsg{}
}

// underlineMatches emphasizes the filter-matched characters. Offsets
// index bytes of the original string.
func underlineMatches(title string, matched []int) string {
	if len(matched) == 0 {
		return title
	}
	set := make(map[int]bool, len(matched))
	for _, i := range matched {
		set[i] = true
	}
	var b strings.Builder
	for i, r := range title {
		if set[i] {
			b.WriteString(matchedCharStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncateTitle(title string, width int) string {
	if width <= 1 {
		return title
	}
	runes := []rune(title)
	if len(runes) <= width {
		return title
	}
	return string(runes[:width-1]) + ellipsis
}

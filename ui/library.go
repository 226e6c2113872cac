package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/muesli/gitcha"
	"github.com/sahilm/fuzzy"
)

// bookPatterns are the document formats worth offering in the picker.
var bookPatterns = []string{
	"*.epub", "*.pdf", "*.docx",
	"*.html", "*.htm",
	"*.md", "*.markdown",
	"*.txt",
}

var ignoredDirs = []string{"node_modules", ".git"}

type bookEntry struct {
	path    string
	rel     string
	modTime time.Time
}

type bookChosenMsg struct{ path string }

type libraryFilterState int

const (
	libraryUnfiltered libraryFilterState = iota
	libraryFiltering
)

// libraryModel lists readable files under the working directory when
// lector starts without an argument.
type libraryModel struct {
	common *commonModel
	spin   spinner.Model
	input  textinput.Model

	filterState libraryFilterState
	searching   bool
	books       []bookEntry
	visible     []bookEntry
	cursor      int
	offset      int

	finder chan gitcha.SearchResult
}

func newLibraryModel(common *commonModel) libraryModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	ti := textinput.New()
	ti.Placeholder = "filter"
	ti.Prompt = "/ "

	return libraryModel{
		common:    common,
		spin:      sp,
		input:     ti,
		searching: true,
	}
}

// findBooks starts the filesystem walk. Results stream back one
// message per file so the list fills in as the walk runs.
func findBooks(common commonModel) tea.Cmd {
	return func() tea.Msg {
		cwd := common.cfg.WorkingDirectory
		if cwd == "" {
			var err error
			cwd, err = os.Getwd()
			if err != nil {
				return errMsg{err}
			}
		}
		cwd, err := filepath.Abs(cwd)
		if err != nil {
			return errMsg{err}
		}

		var ch chan gitcha.SearchResult
		if common.cfg.ShowAllFiles {
			ch, err = gitcha.FindAllFilesExcept(cwd, bookPatterns, nil)
		} else {
			ch, err = gitcha.FindFilesExcept(cwd, bookPatterns, ignoredDirs)
		}
		if err != nil {
			return errMsg{err}
		}

		log.Debug("book search started", "cwd", cwd)
		return initBookSearchMsg{cwd: cwd, ch: ch}
	}
}

func findNextBook(ch chan gitcha.SearchResult) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return bookSearchFinishedMsg{}
		}
		return foundBookMsg(res)
	}
}

func (m libraryModel) update(msg tea.Msg) (libraryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case initBookSearchMsg:
		m.finder = msg.ch
		m.common.cwd = msg.cwd
		return m, findNextBook(m.finder)

	case foundBookMsg:
		res := gitcha.SearchResult(msg)
		m.addBook(bookEntry{
			path:    res.Path,
			rel:     relPath(m.common.cwd, res.Path),
			modTime: res.Info.ModTime(),
		})
		return m, findNextBook(m.finder)

	case bookSearchFinishedMsg:
		m.searching = false
		log.Debug("book search finished", "found", len(m.books))
		return m, nil

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m libraryModel) handleKey(msg tea.KeyMsg) (libraryModel, tea.Cmd) {
	if m.filterState == libraryFiltering {
		switch msg.String() {
		case "esc":
			m.filterState = libraryUnfiltered
			m.input.Blur()
			m.input.SetValue("")
			m.refilter()
			return m, nil
		case "enter":
			m.input.Blur()
			return m.open()
		case "up", "ctrl+p", "down", "ctrl+n":
			m.moveCursor(msg.String())
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

	switch msg.String() {
	case "/":
		m.filterState = libraryFiltering
		return m, m.input.Focus()
	case "enter":
		return m.open()
	case "up", "k", "ctrl+p", "down", "j", "ctrl+n":
		m.moveCursor(msg.String())
		return m, nil
	case "g", "home":
		m.cursor, m.offset = 0, 0
		return m, nil
	case "G", "end":
		m.cursor = len(m.visible) - 1
		m.clampCursor()
		return m, nil
	}
	return m, nil
}

func (m libraryModel) open() (libraryModel, tea.Cmd) {
	if m.cursor >= len(m.visible) {
		return m, nil
	}
	path := m.visible[m.cursor].path
	return m, func() tea.Msg { return bookChosenMsg{path: path} }
}

func (m *libraryModel) addBook(entry bookEntry) {
	m.books = append(m.books, entry)
	sort.SliceStable(m.books, func(i, j int) bool {
		return m.books[i].modTime.After(m.books[j].modTime)
	})
	m.refilter()
}

func (m *libraryModel) refilter() {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.visible = m.books
	} else {
		targets := make([]string, len(m.books))
		for i, b := range m.books {
			targets[i] = b.rel
		}
		matches := fuzzy.Find(query, targets)
		m.visible = make([]bookEntry, 0, len(matches))
		for _, match := range matches {
			m.visible = append(m.visible, m.books[match.Index])
		}
	}
	m.clampCursor()
}

func (m *libraryModel) moveCursor(key string) {
	switch key {
	case "up", "k", "ctrl+p":
		m.cursor--
	case "down", "j", "ctrl+n":
		m.cursor++
	}
	m.clampCursor()
}

func (m *libraryModel) clampCursor() {
	if m.cursor > len(m.visible)-1 {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	rows := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if rows > 0 && m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m libraryModel) listHeight() int {
	h := m.common.height - 6 // header, filter, footer
	if h < 1 {
		h = 1
	}
	return h
}

func (m libraryModel) view() string {
	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(lectorLogoView())
	if m.searching {
		b.WriteString("  ")
		b.WriteString(m.spin.View())
		b.WriteString(subtleStyle.Render("looking for books…"))
	} else {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("  %d books in %s", len(m.books), tildePath(m.common.cwd, m.common.cfg.HomeDir))))
	}
	b.WriteString("\n\n")

	if m.filterState == libraryFiltering {
		b.WriteString("  ")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	if len(m.visible) == 0 && !m.searching {
		b.WriteString(subtleStyle.Render("  nothing readable here"))
		b.WriteByte('\n')
	}

	rows := m.listHeight()
	for i := m.offset; i < m.offset+rows && i < len(m.visible); i++ {
		entry := m.visible[i]
		line := fmt.Sprintf("%s  %s",
			entry.rel,
			subtleStyle.Render(humanize.Time(entry.modTime)),
		)
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("❯ "))
			b.WriteString(selectedItemStyle.Render(entry.rel))
			b.WriteString("  ")
			b.WriteString(subtleStyle.Render(humanize.Time(entry.modTime)))
		} else {
			b.WriteString("  ")
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("  enter opens · / filters · q quits"))
	return b.String()
}

func relPath(cwd, path string) string {
	rel, err := filepath.Rel(cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func tildePath(path, home string) string {
	if home != "" && strings.HasPrefix(path, home) {
		return "~" + strings.TrimPrefix(path, home)
	}
	return path
}

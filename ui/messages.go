package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/editor"
	"github.com/muesli/gitcha"

	"github.com/dgnsrekt/lector/internal/source"
	"github.com/dgnsrekt/lector/reading"
)

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// sessionEventMsg wraps one reading event for the message loop. The
// root model re-arms awaitEvent after each delivery, so the program
// redraws exactly once per event.
type sessionEventMsg struct{ event reading.Event }

// sessionClosedMsg arrives when the session's event channel closes.
type sessionClosedMsg struct{}

type bookLoadedMsg struct {
	book *source.Book
	doc  *reading.Document
}

// bookReloadedMsg carries the rebuilt document after the source file
// changed on disk.
type bookReloadedMsg struct {
	book *source.Book
	doc  *reading.Document
}

type (
	reloadMsg               struct{}
	editorFinishedMsg       struct{ err error }
	statusMessageTimeoutMsg struct{}
)

// Library picker messages.
type (
	initBookSearchMsg struct {
		cwd string
		ch  chan gitcha.SearchResult
	}
	foundBookMsg          gitcha.SearchResult
	bookSearchFinishedMsg struct{}
)

type tocChosenMsg struct{ chapter int }

type overlayDismissMsg struct{}

type assistantAnswerMsg struct {
	seq    int
	answer string
	err    error
}

// awaitEvent blocks on the session event channel and hands the next
// event to the program.
func awaitEvent(events <-chan reading.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionEventMsg{event: ev}
	}
}

func loadBook(path string) tea.Cmd {
	return func() tea.Msg {
		book, doc, err := buildBook(path)
		if err != nil {
			return errMsg{err}
		}
		return bookLoadedMsg{book: book, doc: doc}
	}
}

func reloadBook(path string) tea.Cmd {
	return func() tea.Msg {
		book, doc, err := buildBook(path)
		if err != nil {
			return errMsg{err}
		}
		return bookReloadedMsg{book: book, doc: doc}
	}
}

func buildBook(path string) (*source.Book, *reading.Document, error) {
	book, err := source.Load(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := reading.Build(chapterSources(book))
	if err != nil {
		return nil, nil, err
	}
	return book, doc, nil
}

func chapterSources(book *source.Book) []reading.ChapterSource {
	out := make([]reading.ChapterSource, len(book.Chapters))
	for i, ch := range book.Chapters {
		out[i] = reading.ChapterSource{Title: ch.Title, Paragraphs: ch.Paragraphs}
	}
	return out
}

// openEditor suspends the program and opens the book source in EDITOR.
func openEditor(path string) tea.Cmd {
	c, err := editor.Cmd("Lector", path)
	if err != nil {
		return func() tea.Msg { return errMsg{err} }
	}
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{err}
	})
}

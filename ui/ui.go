// Package ui is the terminal front end: a bubbletea program with a
// library picker, the reader view, and the contents and assistant
// overlays. It consumes the reading session's event stream and
// redraws only on events, input, resize and reload, never on a tick.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lector/internal/assistant"
	"github.com/dgnsrekt/lector/internal/cache"
	"github.com/dgnsrekt/lector/internal/progress"
	"github.com/dgnsrekt/lector/reading"
	"github.com/dgnsrekt/lector/reading/audio"
	"github.com/dgnsrekt/lector/reading/engines"
)

const (
	statusMessageTimeout = time.Second * 2
	ellipsis             = "…"
)

// NewProgram returns the tea program for the given configuration.
func NewProgram(cfg Config) *tea.Program {
	log.Debug("starting lector", "path", cfg.Path, "engine", cfg.Engine)
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg), opts...)
}

// state is the top-level application state.
type state int

const (
	stateShowLibrary state = iota
	stateShowBook
)

func (s state) String() string {
	return map[state]string{
		stateShowLibrary: "showing library",
		stateShowBook:    "showing book",
	}[s]
}

// overlayKind is the modal overlay holding input focus, if any.
type overlayKind int

const (
	overlayNone overlayKind = iota
	overlayTOC
	overlayAssistant
)

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	cwd    string
	width  int
	height int
}

type model struct {
	common   *commonModel
	state    state
	overlay  overlayKind
	fatalErr error

	// Sub-models
	library libraryModel
	reader  readerModel
	toc     tocModel
	assist  assistantModel

	session *reading.Session
	store   *progress.Store
	cache   *cache.Cache

	assistClient assistant.Client
	quitting     bool
}

func newModel(cfg Config) tea.Model {
	common := commonModel{cfg: cfg}

	m := model{
		common:  &common,
		state:   stateShowLibrary,
		library: newLibraryModel(&common),
		reader:  newReaderModel(&common),
	}

	store, err := progress.Open(cfg.ProgressDir)
	if err != nil {
		log.Warn("progress store unavailable, positions will not persist", "err", err)
	} else {
		m.store = store
	}

	if cfg.CacheDir != "" {
		c, err := cache.New(cache.DefaultOptions(cfg.CacheDir))
		if err != nil {
			log.Warn("audio cache unavailable", "err", err)
		} else {
			m.cache = c
		}
	}

	if client, err := assistant.NewCommand(cfg.AssistantCmd); err == nil {
		m.assistClient = client
	}

	if cfg.Path != "" {
		m.state = stateShowBook
	}
	return m
}

func (m model) Init() tea.Cmd {
	log.Debug("init", "state", m.state)
	if m.state == stateShowBook {
		return loadBook(m.common.cfg.Path)
	}
	return tea.Batch(m.library.spin.Tick, findBooks(*m.common))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been a fatal error, any key exits.
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Ctrl+C always quits no matter where in the application you
		// are.
		if msg.String() == "ctrl+c" {
			return m.shutdown()
		}

		if m.overlay != overlayNone {
			return m.updateOverlay(msg)
		}

		switch msg.String() {
		case "q":
			if m.state == stateShowLibrary && m.library.filterState == libraryFiltering {
				break // q is part of the filter text
			}
			return m.shutdown()

		case "esc":
			if m.state == stateShowBook && !m.reader.showHelp {
				return m.closeBook()
			}

		case "T":
			if m.state == stateShowBook && m.session != nil {
				m.toc = newTOCModel(m.common, chapterTitles(m.session.Document()), m.session.Cursor().Position().Chapter)
				m.overlay = overlayTOC
				return m, nil
			}

		case "A":
			if m.state == stateShowBook && m.session != nil {
				if m.assistClient == nil {
					var cmd tea.Cmd
					m.reader, cmd = m.readerStatus("No assistant command configured", true)
					return m, cmd
				}
				sentence, chapter := m.session.Snapshot()
				m.assist = newAssistantModel(m.common, m.assistClient, sentence, chapter)
				m.overlay = overlayAssistant
				return m, nil
			}

		case "ctrl+z":
			return m, tea.Suspend
		}

	// Window size is received on startup and on every resize.
	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.reader.setSize(msg.Width, msg.Height)
		if m.overlay == overlayAssistant {
			m.assist.setSize()
		}

	case errMsg:
		if m.state == stateShowBook && m.session == nil {
			// The initial load failed; there is nothing to show.
			m.fatalErr = msg.err
			return m, nil
		}
		var cmd tea.Cmd
		m.reader, cmd = m.readerStatus(msg.err.Error(), true)
		return m, cmd

	case bookLoadedMsg:
		return m.openBook(msg)

	case bookReloadedMsg:
		if m.session != nil {
			m.session.Reload(msg.doc)
			m.reader.setReloaded(msg.book)
		}
		return m, nil

	case reloadMsg:
		if m.session != nil {
			cmds = append(cmds, reloadBook(m.session.Path()))
		}
		return m, tea.Batch(cmds...)

	case sessionEventMsg:
		if m.session == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.reader, cmd = m.reader.handleEvent(msg.event)
		return m, tea.Batch(cmd, awaitEvent(m.session.Events()))

	case sessionClosedMsg:
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case tocChosenMsg:
		m.overlay = overlayNone
		if m.session != nil {
			m.session.Cursor().JumpToChapter(msg.chapter)
		}
		return m, nil

	case overlayDismissMsg:
		m.overlay = overlayNone
		return m, nil

	case assistantAnswerMsg:
		if m.overlay == overlayAssistant {
			var cmd tea.Cmd
			m.assist, cmd = m.assist.update(msg)
			return m, cmd
		}
		return m, nil
	}

	// Route everything else to whoever holds focus.
	switch {
	case m.overlay != overlayNone:
		return m.updateOverlay(msg)
	case m.state == stateShowLibrary:
		var cmd tea.Cmd
		m.library, cmd = m.library.update(msg)
		cmds = append(cmds, cmd)
		if chosen, ok := msg.(bookChosenMsg); ok {
			m.common.cfg.Path = chosen.path
			m.state = stateShowBook
			cmds = append(cmds, loadBook(chosen.path))
		}
	case m.state == stateShowBook:
		var cmd tea.Cmd
		m.reader, cmd = m.reader.update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) updateOverlay(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.overlay {
	case overlayTOC:
		m.toc, cmd = m.toc.update(msg)
	case overlayAssistant:
		m.assist, cmd = m.assist.update(msg)
	}
	return m, cmd
}

// openBook builds the speech pipeline and session around a freshly
// parsed document.
func (m model) openBook(msg bookLoadedMsg) (tea.Model, tea.Cmd) {
	engine, err := engines.New(engines.Config{
		Engine:   m.common.cfg.Engine,
		Voice:    m.common.cfg.Voice,
		Speed:    m.common.cfg.Speed,
		Language: m.common.cfg.Language,
		Cache:    m.cache,
	})
	if err != nil {
		m.fatalErr = err
		return m, nil
	}

	var player reading.Player
	var audioErr error
	if p, err := audio.NewPlayer(); err != nil {
		audioErr = err
		player = audio.NewMockPlayer(true)
	} else {
		player = p
	}

	var store reading.ProgressStore
	if m.store != nil {
		store = m.store
	}
	session := reading.NewSession(msg.doc, engine, player, store, progress.BookID(msg.book.Path), msg.book.Path,
		reading.WithViewDefaults(m.common.cfg.AutoScroll, m.common.cfg.Focus))

	m.session = session
	m.state = stateShowBook
	m.reader.setBook(msg.book, session)

	cmds := []tea.Cmd{
		awaitEvent(session.Events()),
		m.reader.watchFile,
	}
	if audioErr != nil {
		log.Warn("audio device unavailable, playback is silent", "err", audioErr)
		var cmd tea.Cmd
		m.reader, cmd = m.readerStatus("Audio device unavailable", true)
		cmds = append(cmds, cmd)
	}
	if m.common.cfg.Speak {
		if err := session.TogglePlayback(); err != nil {
			log.Warn("autoplay failed", "err", err)
		}
	}
	return m, tea.Batch(cmds...)
}

// closeBook tears the session down and returns to the library.
func (m model) closeBook() (tea.Model, tea.Cmd) {
	session := m.session
	m.session = nil
	m.reader.unload()
	m.state = stateShowLibrary
	m.library = newLibraryModel(m.common)

	return m, tea.Batch(
		closeSession(session),
		m.library.spin.Tick,
		findBooks(*m.common),
	)
}

// shutdown cancels playback, saves progress and quits. The close runs
// in a command so a slow engine cannot wedge the input loop.
func (m model) shutdown() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.assist.abandon()
	if m.session == nil {
		return m, tea.Quit
	}
	session := m.session
	m.session = nil
	return m, closeSession(session)
}

func closeSession(session *reading.Session) tea.Cmd {
	if session == nil {
		return nil
	}
	return func() tea.Msg {
		if err := session.Close(); err != nil {
			log.Warn("session close", "err", err)
		}
		return sessionClosedMsg{}
	}
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	switch m.overlay {
	case overlayTOC:
		return m.toc.view()
	case overlayAssistant:
		return m.assist.view()
	}

	switch m.state {
	case stateShowBook:
		return m.reader.View()
	default:
		return m.library.view()
	}
}

func (m model) readerStatus(text string, isError bool) (readerModel, tea.Cmd) {
	cmd := m.reader.showStatusMessage(readerStatusMessage{text, isError})
	return m.reader, cmd
}

func chapterTitles(doc *reading.Document) []string {
	titles := make([]string, doc.ChapterCount())
	for i := range titles {
		titles[i] = doc.ChapterTitle(i)
	}
	return titles
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}

package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/lector/internal/source"
	"github.com/dgnsrekt/lector/reading"
)

const statusBarHeight = 1

var readerHelpHeight int

type readerState int

const (
	readerStateBrowse readerState = iota
	readerStateStatusMessage
)

// readerModel is the book view: the wrapped document in a viewport,
// the highlighted sentence, the status bar and the help panel. It
// consumes session events; it never polls.
type readerModel struct {
	common   *commonModel
	viewport viewport.Model
	state    readerState
	showHelp bool

	book    *source.Book
	session *reading.Session
	layout  *layout

	current  reading.Position
	playback reading.PlaybackState

	statusMessage      string
	statusMessageTimer *time.Timer

	watcher *fsnotify.Watcher
}

func newReaderModel(common *commonModel) readerModel {
	vp := viewport.New(0, 0)
	vp.YPosition = 0

	m := readerModel{
		common:   common,
		state:    readerStateBrowse,
		viewport: vp,
	}
	m.initWatcher()
	return m
}

// setBook installs a freshly opened book and its session.
func (m *readerModel) setBook(book *source.Book, session *reading.Session) {
	m.book = book
	m.session = session
	m.current = session.Cursor().Position()
	m.playback = session.State()
	m.rebuild()
	m.scrollTo(m.current, true)
}

// setReloaded swaps in the re-parsed book after a disk change. The
// session has already re-clamped the cursor into the new document.
func (m *readerModel) setReloaded(book *source.Book) {
	m.book = book
	m.current = m.session.Cursor().Position()
	m.rebuild()
	m.scrollTo(m.current, true)
}

// rebuild recomputes the layout for the current width and refreshes
// the viewport content.
func (m *readerModel) rebuild() {
	if m.session == nil {
		return
	}
	m.layout = newLayout(m.session.Document(), m.viewport.Width)
	m.refresh()
}

// refresh re-renders the document with the current highlight.
func (m *readerModel) refresh() {
	if m.layout == nil {
		return
	}
	m.viewport.SetContent(m.layout.render(m.current))
}

func (m *readerModel) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h - statusBarHeight

	if m.showHelp {
		if readerHelpHeight == 0 {
			readerHelpHeight = strings.Count(m.helpView(), "\n")
		}
		m.viewport.Height -= statusBarHeight + readerHelpHeight
	}

	m.rebuild()
	m.scrollTo(m.current, true)
}

func (m *readerModel) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize(m.common.width, m.common.height)
	if m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

type readerStatusMessage struct {
	message string
	isError bool
}

func (m *readerModel) showStatusMessage(msg readerStatusMessage) tea.Cmd {
	m.state = readerStateStatusMessage
	m.statusMessage = msg.message
	if msg.isError {
		m.statusMessage = "Error: " + msg.message
	}
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)

	t := m.statusMessageTimer
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

// unload clears the open book before returning to the library.
func (m *readerModel) unload() {
	log.Debug("reader unload")
	if m.showHelp {
		m.toggleHelp()
	}
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.unwatchFile()
	m.state = readerStateBrowse
	m.book = nil
	m.session = nil
	m.layout = nil
	m.viewport.SetContent("")
	m.viewport.SetYOffset(0)
}

func (m readerModel) update(msg tea.Msg) (readerModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.session == nil {
			return m, nil
		}
		cursor := m.session.Cursor()
		switch msg.String() {
		case " ":
			if err := m.session.TogglePlayback(); err != nil {
				cmds = append(cmds, m.showStatusMessage(readerStatusMessage{err.Error(), true}))
			}

		case "s":
			if err := m.session.Stop(); err != nil {
				cmds = append(cmds, m.showStatusMessage(readerStatusMessage{err.Error(), true}))
			}

		case "h":
			cursor.PreviousChapter()
		case "l":
			cursor.NextChapter()
		case "j":
			cursor.NextParagraph()
		case "k":
			cursor.PreviousParagraph()
		case "down":
			cursor.NextSentence()
		case "up":
			cursor.PreviousSentence()
		case "n":
			cursor.ScrollDown()
		case "u":
			cursor.ScrollUp()

		case "f", "pgdown":
			cursor.PageDown(m.pageSize())
		case "b", "pgup":
			cursor.PageUp(m.pageSize())

		case "g", "home":
			cursor.JumpToStart()
		case "G", "end":
			cursor.JumpToEnd()

		case "t":
			if pos, ok := m.layout.topVisible(m.viewport.YOffset); ok {
				cursor.JumpToTopVisible(pos)
			}

		case "a":
			on := m.session.ToggleAutoScroll()
			cmds = append(cmds, m.showStatusMessage(readerStatusMessage{"Auto-scroll " + onOff(on), false}))

		case "z":
			on := m.session.ToggleFocus()
			cmds = append(cmds, m.showStatusMessage(readerStatusMessage{"Focus mode " + onOff(on), false}))
			if on {
				m.scrollTo(m.current, true)
			}

		case "c":
			if sent, ok := m.session.Document().Resolve(m.current); ok {
				termenv.Copy(sent.Display)
				_ = clipboard.WriteAll(sent.Display)
				cmds = append(cmds, m.showStatusMessage(readerStatusMessage{"Copied sentence", false}))
			}

		case "e":
			return m, openEditor(m.book.Path)

		case "r":
			return m, reloadBook(m.book.Path)

		case "?":
			m.toggleHelp()

		default:
			// Everything else scrolls the viewport without moving the
			// cursor.
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && m.layout != nil {
			line := m.viewport.YOffset + msg.Y
			if pos, ok := m.layout.positionAt(line, msg.X); ok {
				m.session.Cursor().JumpToSentence(pos)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case statusMessageTimeoutMsg:
		m.state = readerStateBrowse
		return m, nil

	case editorFinishedMsg:
		if msg.err != nil {
			return m, m.showStatusMessage(readerStatusMessage{msg.err.Error(), true})
		}
		return m, reloadBook(m.book.Path)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleEvent applies one session event. This is the only place the
// highlight moves, so the document re-renders exactly once per event.
func (m readerModel) handleEvent(ev reading.Event) (readerModel, tea.Cmd) {
	switch ev := ev.(type) {
	case reading.PositionChanged:
		m.current = ev.New
		m.refresh()
		m.scrollTo(ev.New, ev.Manual)

	case reading.StateChanged:
		m.playback = ev.State
		if ev.State.State == reading.StateIdle && ev.State.Err != nil {
			return m, m.showStatusMessage(readerStatusMessage{ev.State.Err.Error(), true})
		}

	case reading.StatusChanged:
		return m, m.showStatusMessage(readerStatusMessage{ev.Message, ev.Err != nil})

	case reading.DocumentReloaded:
		return m, m.showStatusMessage(readerStatusMessage{"Reloaded " + filepath.Base(ev.Path), false})
	}
	return m, nil
}

// scrollTo keeps the sentence visible. Manual moves always follow;
// playback advances follow only while auto-scroll is on.
func (m *readerModel) scrollTo(pos reading.Position, manual bool) {
	if m.layout == nil || m.session == nil {
		return
	}
	start, end, ok := m.layout.span(pos)
	if !ok {
		return
	}
	vp := reading.Viewport{Top: m.viewport.YOffset, Height: m.viewport.Height}
	opts := reading.ScrollOptions{
		Enabled: manual || m.session.AutoScrollEnabled(),
		Focus:   m.session.FocusEnabled(),
		Margin:  m.common.cfg.ScrollMargin,
	}
	if next, moved := reading.AutoScroll(vp, start, end, m.layout.lineCount(), opts); moved {
		m.viewport.SetYOffset(next.Top)
	}
}

// pageSize is the paging step in sentences, taken from what is
// actually on screen.
func (m readerModel) pageSize() int {
	if m.layout == nil {
		return 1
	}
	n := m.layout.sentencesInView(m.viewport.YOffset, m.viewport.Height)
	if n < 1 {
		n = 1
	}
	return n
}

func (m readerModel) View() string {
	var b strings.Builder
	fmt.Fprint(&b, m.viewport.View()+"\n")
	m.statusBarView(&b)
	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}
	return b.String()
}

func (m readerModel) statusBarView(b *strings.Builder) {
	showStatusMessage := m.state == readerStateStatusMessage

	logo := lectorLogoView()

	// Reading progress, by sentences read rather than scroll position.
	var percent float64
	if m.session != nil {
		percent = m.session.Document().Progress(m.current)
	}
	progress := fmt.Sprintf(" %3.f%% ", percent*100)
	if showStatusMessage {
		progress = statusBarMessageScrollPosStyle(progress)
	} else {
		progress = statusBarScrollPosStyle(progress)
	}

	var helpNote string
	if showStatusMessage {
		helpNote = statusBarMessageHelpStyle(" ? Help ")
	} else {
		helpNote = statusBarHelpStyle(" ? Help ")
	}

	var note string
	if showStatusMessage {
		note = m.statusMessage
	} else {
		note = m.noteView()
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0,
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(progress)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	if showStatusMessage {
		note = statusBarMessageStyle(note)
	} else {
		note = statusBarNoteStyle(note)
	}

	padding := max(0,
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(progress)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := strings.Repeat(" ", padding)
	if showStatusMessage {
		emptySpace = statusBarMessageStyle(emptySpace)
	} else {
		emptySpace = statusBarNoteStyle(emptySpace)
	}

	fmt.Fprintf(b, "%s%s%s%s%s", logo, note, emptySpace, progress, helpNote)
}

// noteView is the status bar text: book title, chapter and playback.
func (m readerModel) noteView() string {
	if m.book == nil {
		return ""
	}
	parts := []string{m.book.Title}
	if title := m.session.Document().ChapterTitle(m.current.Chapter); title != "" && title != m.book.Title {
		parts = append(parts, title)
	}
	if pb := playbackNote(m.playback); pb != "" {
		parts = append(parts, pb)
	}
	return strings.Join(parts, " · ")
}

func playbackNote(ps reading.PlaybackState) string {
	switch ps.State {
	case reading.StateGenerating:
		return "Generating…"
	case reading.StateSpeaking:
		return "Speaking"
	case reading.StatePaused:
		return "Paused"
	default:
		return ""
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (m readerModel) helpView() (s string) {
	s += "\n"
	s += "space    play/pause          g/home  start of book\n"
	s += "s        stop speaking       G/end   end of book\n"
	s += "↓/↑      next/prev sentence  t       first visible sentence\n"
	s += "j/k      next/prev paragraph a       toggle auto-scroll\n"
	s += "h/l      prev/next chapter   z       toggle focus mode\n"
	s += "n/u      fine scroll         c       copy sentence\n"
	s += "f/b      page down/up        e       edit book source\n"
	s += "T        contents            r       reload book\n"
	s += "A        assistant           q       quit\n"

	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring.
	if m.common.width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := runewidth.StringWidth(lines[i])
			n := max(m.common.width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}
		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}

func (m *readerModel) initWatcher() {
	var err error
	m.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
	}
}

// watchFile blocks on the watcher until the open book changes on
// disk. Watching the directory instead of the file survives editors
// that replace by rename.
func (m *readerModel) watchFile() tea.Msg {
	if m.watcher == nil || m.book == nil {
		return nil
	}
	dir := filepath.Dir(m.book.Path)
	path := m.book.Path

	if err := m.watcher.Add(dir); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		return nil
	}
	log.Debug("fsnotify watching dir", "dir", dir)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			return reloadMsg{}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}

func (m *readerModel) unwatchFile() {
	if m.watcher == nil || m.book == nil {
		return
	}
	dir := filepath.Dir(m.book.Path)
	if err := m.watcher.Remove(dir); err != nil {
		log.Debug("fsnotify fail to unwatch dir", "dir", dir, "error", err)
	}
}

package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lector/internal/assistant"
)

type assistantState int

const (
	assistantComposing assistantState = iota
	assistantAsking
	assistantAnswered
	assistantFailed
)

// assistantModel is the ask-about-this-passage overlay. The sentence
// and chapter snapshot is captured when the overlay opens and taken
// fresh on every reopen, so answers always refer to where the reader
// actually is.
type assistantModel struct {
	common *commonModel
	client assistant.Client

	input   textinput.Model
	spin    spinner.Model
	answers viewport.Model

	state    assistantState
	sentence string
	chapter  string
	question string
	err      error

	// seq discards answers that arrive after the question changed or
	// the overlay was reopened.
	seq    int
	cancel context.CancelFunc
}

func newAssistantModel(common *commonModel, client assistant.Client, sentence, chapter string) assistantModel {
	ti := textinput.New()
	ti.Placeholder = "ask about this passage"
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := assistantModel{
		common:   common,
		client:   client,
		input:    ti,
		spin:     sp,
		sentence: sentence,
		chapter:  chapter,
	}
	m.answers = viewport.New(m.boxInnerWidth(), m.answerHeight())
	return m
}

func (m assistantModel) update(msg tea.Msg) (assistantModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.abandon()
			return m, dismissOverlay

		case "enter":
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.state == assistantAsking {
				return m, nil
			}
			return m.ask(question)

		case "up", "down", "pgup", "pgdown":
			// The input is single-line; vertical keys scroll the answer.
			var cmd tea.Cmd
			m.answers, cmd = m.answers.Update(msg)
			return m, cmd

		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if m.state != assistantAsking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case assistantAnswerMsg:
		if msg.seq != m.seq {
			return m, nil // a newer question superseded this answer
		}
		m.cancel = nil
		if msg.err != nil {
			m.state = assistantFailed
			m.err = msg.err
			return m, nil
		}
		m.state = assistantAnswered
		m.err = nil
		m.answers.SetContent(renderMarkdown(msg.answer, m.boxInnerWidth()))
		m.answers.GotoTop()
		return m, nil

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m assistantModel) ask(question string) (assistantModel, tea.Cmd) {
	m.abandon()
	m.seq++
	m.state = assistantAsking
	m.question = question
	m.err = nil
	m.input.SetValue("")

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	q := assistant.Question{
		Sentence: m.sentence,
		Chapter:  m.chapter,
		Prompt:   question,
	}
	seq := m.seq
	client := m.client
	askCmd := func() tea.Msg {
		answer, err := client.Ask(ctx, q)
		return assistantAnswerMsg{seq: seq, answer: answer, err: err}
	}
	log.Debug("assistant question", "question", question)
	return m, tea.Batch(m.spin.Tick, askCmd)
}

// abandon cancels an in-flight question so a dismissed overlay does
// not leave its command running.
func (m *assistantModel) abandon() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *assistantModel) setSize() {
	m.answers.Width = m.boxInnerWidth()
	m.answers.Height = m.answerHeight()
}

func (m assistantModel) boxWidth() int {
	width := min(m.common.width-6, 76)
	if width < 30 {
		width = 30
	}
	return width
}

func (m assistantModel) boxInnerWidth() int {
	return m.boxWidth() - 4 // overlay padding
}

func (m assistantModel) answerHeight() int {
	h := m.common.height - 12
	if h < 3 {
		h = 3
	}
	return h
}

func (m assistantModel) view() string {
	inner := m.boxInnerWidth()

	var b strings.Builder
	b.WriteString(overlayTitleStyle.Render("Assistant"))
	b.WriteString("\n\n")
	b.WriteString(subtleStyle.Render(truncateTitle("“"+m.sentence+"”", inner)))
	b.WriteString("\n\n")

	switch m.state {
	case assistantAsking:
		b.WriteString(m.spin.View())
		b.WriteString(subtleStyle.Render(" thinking…"))
		b.WriteByte('\n')
	case assistantAnswered:
		b.WriteString(m.answers.View())
		b.WriteByte('\n')
	case assistantFailed:
		b.WriteString(errorTitleStyle.Render("ERROR"))
		b.WriteByte(' ')
		b.WriteString(m.err.Error())
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(subtleStyle.Render("enter asks · ↑/↓ scroll the answer · esc closes"))

	box := overlayStyle.Width(m.boxWidth()).Render(b.String())
	return lipgloss.Place(m.common.width, m.common.height, lipgloss.Center, lipgloss.Center, box)
}

// renderMarkdown pretty-prints an answer. Plain text passes through
// unchanged when rendering fails.
func renderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		log.Debug("assistant answer render failed", "err", err)
		return text
	}
	return strings.TrimSpace(out)
}

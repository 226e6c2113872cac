// Package assistant answers questions about the passage under the
// cursor by piping a rendered prompt into a user-configured command
// and reading the answer from its stdout. Which model (or script, or
// person) sits behind that command is entirely the user's business.
package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrNotConfigured is returned by NewCommand when no command line is
// set.
var ErrNotConfigured = errors.New("no assistant command configured")

// killGrace bounds how long a finished or cancelled command may sit
// on its pipes before the process group is abandoned.
const killGrace = 5 * time.Second

// maxContextRunes caps the chapter context in the rendered prompt so
// a very long chapter cannot blow past a model's input window.
const maxContextRunes = 4000

// Question carries the snapshot the answer should ground on. The
// snapshot is captured when the overlay opens and recaptured on every
// reopen; answers always refer to where the reader actually is.
type Question struct {
	Sentence string // sentence under the cursor
	Chapter  string // surrounding chapter text
	Prompt   string // the reader's question
}

// Client answers reading questions.
type Client interface {
	Ask(ctx context.Context, q Question) (string, error)
}

// Func adapts a function to the Client interface.
type Func func(ctx context.Context, q Question) (string, error)

// Ask calls f.
func (f Func) Ask(ctx context.Context, q Question) (string, error) {
	return f(ctx, q)
}

// Command is the default Client: one subprocess per question, prompt
// on stdin, answer on stdout.
type Command struct {
	cmdline string
}

// NewCommand builds a Command around the configured command line.
func NewCommand(cmdline string) (*Command, error) {
	cmdline = strings.TrimSpace(cmdline)
	if cmdline == "" {
		return nil, ErrNotConfigured
	}
	return &Command{cmdline: cmdline}, nil
}

// Ask renders the prompt, runs the command and returns its trimmed
// stdout. The command line goes through the shell so users can write
// pipes and flags in their config.
func (c *Command) Ask(ctx context.Context, q Question) (string, error) {
	start := time.Now()

	cmd := shellCommand(ctx, c.cmdline)
	cmd.Stdin = strings.NewReader(renderPrompt(q))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killGrace

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("assistant: %w", ctx.Err())
		}
		if line := firstLine(stderr.String()); line != "" {
			return "", fmt.Errorf("assistant command failed: %s", line)
		}
		return "", fmt.Errorf("assistant command failed: %w", err)
	}

	answer := strings.TrimSpace(stdout.String())
	if answer == "" {
		return "", errors.New("assistant command returned no answer")
	}
	log.Debug("assistant answered",
		"bytes", len(answer),
		"duration", time.Since(start))
	return answer, nil
}

func shellCommand(ctx context.Context, cmdline string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", cmdline)
	}
	return exec.CommandContext(ctx, "sh", "-c", cmdline)
}

// renderPrompt lays out the question the way the reader sees it:
// chapter for context, the sentence they stopped on, then their
// question.
func renderPrompt(q Question) string {
	var b strings.Builder
	b.WriteString("You are a reading assistant helping someone understand a book.\n\n")

	if chapter := clampRunes(q.Chapter, maxContextRunes); chapter != "" {
		b.WriteString("Current chapter:\n\"\"\"\n")
		b.WriteString(chapter)
		b.WriteString("\n\"\"\"\n\n")
	}
	if q.Sentence != "" {
		b.WriteString("The reader stopped at this sentence:\n\"")
		b.WriteString(q.Sentence)
		b.WriteString("\"\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(q.Prompt)
	b.WriteString("\n\nAnswer concisely and quote the text when it helps.\n")
	return b.String()
}

func clampRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

package assistant

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func needShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test commands are written for sh")
	}
}

func TestNewCommandEmpty(t *testing.T) {
	for _, cmdline := range []string{"", "   ", "\t\n"} {
		if _, err := NewCommand(cmdline); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("NewCommand(%q) err = %v, want ErrNotConfigured", cmdline, err)
		}
	}
	if _, err := NewCommand("cat"); err != nil {
		t.Fatalf("NewCommand(cat) err = %v", err)
	}
}

func TestAskPipesPromptToCommand(t *testing.T) {
	needShell(t)

	c, err := NewCommand("cat")
	if err != nil {
		t.Fatal(err)
	}
	q := Question{
		Sentence: "The ship heeled hard to port.",
		Chapter:  "The storm broke at midnight. The ship heeled hard to port.",
		Prompt:   "Why did the ship heel?",
	}
	answer, err := c.Ask(context.Background(), q)
	if err != nil {
		t.Fatalf("Ask() err = %v", err)
	}
	for _, want := range []string{
		"reading assistant",
		"Current chapter:",
		q.Chapter,
		`"The ship heeled hard to port."`,
		"Question: Why did the ship heel?",
	} {
		if !strings.Contains(answer, want) {
			t.Errorf("prompt missing %q:\n%s", want, answer)
		}
	}
}

func TestAskTrimsAnswer(t *testing.T) {
	needShell(t)

	c, err := NewCommand(`printf '\n  the answer  \n\n'`)
	if err != nil {
		t.Fatal(err)
	}
	answer, err := c.Ask(context.Background(), Question{Prompt: "?"})
	if err != nil {
		t.Fatalf("Ask() err = %v", err)
	}
	if answer != "the answer" {
		t.Errorf("answer = %q, want %q", answer, "the answer")
	}
}

func TestAskSurfacesStderr(t *testing.T) {
	needShell(t)

	c, err := NewCommand("echo model not found >&2; exit 3")
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Ask(context.Background(), Question{Prompt: "?"})
	if err == nil {
		t.Fatal("Ask() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("err = %v, want stderr text surfaced", err)
	}
}

func TestAskEmptyAnswerIsError(t *testing.T) {
	needShell(t)

	c, err := NewCommand("true")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Ask(context.Background(), Question{Prompt: "?"}); err == nil {
		t.Fatal("Ask() succeeded on empty output, want error")
	}
}

func TestAskHonorsCancellation(t *testing.T) {
	needShell(t)

	c, err := NewCommand("exec sleep 5")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Ask(ctx, Question{Prompt: "?"})
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("Ask() took %v after cancellation", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestFuncAdapter(t *testing.T) {
	var got Question
	client := Func(func(_ context.Context, q Question) (string, error) {
		got = q
		return "ok", nil
	})
	answer, err := client.Ask(context.Background(), Question{Prompt: "hi"})
	if err != nil || answer != "ok" {
		t.Fatalf("Ask() = %q, %v", answer, err)
	}
	if got.Prompt != "hi" {
		t.Errorf("adapter passed Prompt = %q", got.Prompt)
	}
}

func TestRenderPromptClampsChapter(t *testing.T) {
	q := Question{
		Chapter: strings.Repeat("wörd ", maxContextRunes),
		Prompt:  "?",
	}
	prompt := renderPrompt(q)
	if n := len([]rune(prompt)); n > maxContextRunes+200 {
		t.Errorf("rendered prompt is %d runes, chapter not clamped", n)
	}
	if !strings.Contains(prompt, "…") {
		t.Error("clamped chapter missing truncation marker")
	}
}

func TestRenderPromptOmitsEmptySections(t *testing.T) {
	prompt := renderPrompt(Question{Prompt: "What is this book about?"})
	if strings.Contains(prompt, "Current chapter:") {
		t.Error("prompt has a chapter section without chapter text")
	}
	if strings.Contains(prompt, "stopped at this sentence") {
		t.Error("prompt has a sentence section without a sentence")
	}
	if !strings.Contains(prompt, "Question: What is this book about?") {
		t.Errorf("prompt missing question:\n%s", prompt)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  \n ", ""},
		{"boom", "boom"},
		{"boom\nquiet detail", "boom"},
		{"\n\nindented first\nmore", "indented first"},
	}
	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

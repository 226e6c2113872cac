package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// logCloser flushes the log file once the program is done. Replaced by
// setupLog when a file is in use.
var logCloser = func() error { return nil }

// setupLog routes logging to a file when one is configured and
// discards it otherwise. The TUI owns the terminal, so nothing may
// write to stderr while it runs.
func setupLog() (func() error, error) {
	path := viper.GetString("log_file")
	if path == "" && viper.GetBool("debug") {
		scope := gap.NewScope(gap.User, "lector")
		if p, err := scope.LogPath("lector.log"); err == nil {
			path = p
		}
	}
	if path == "" {
		log.SetOutput(io.Discard)
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := tea.LogToFile(path, "lector")
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.RFC3339)
	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	return f.Close, nil
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# speech engine, or a comma-separated fallback chain: piper, gtts, mock
tts: "piper,gtts"
# piper voice model path
# voice: "~/.local/share/piper/en_US-lessac-medium.onnx"
# speaking speed multiplier (0.1 to 3.0)
speed: 1.0
# gtts language code
language: "en"

# follow the spoken sentence as playback advances
auto_scroll: true
# keep the spoken sentence centered while following
focus: false
# start speaking as soon as a book opens
speak: false

# mouse support: the wheel scrolls, a click jumps to the sentence
mouse: true
# show hidden and ignored files in the library picker
all: false

# command the assistant overlay pipes its prompt into. The prompt
# arrives on stdin; the answer is read from stdout.
# assistant_cmd: "ollama run llama3.2"

# synthesized audio cache location (empty uses the platform default)
# cache_dir: "~/.cache/lector/audio"
# reading progress location (empty uses the platform default)
# progress_dir: "~/.local/share/lector"

# log file (empty disables logging; --debug picks a default path)
# log_file: "~/.cache/lector/lector.log"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the lector config file",
	Long:    paragraph(fmt.Sprintf("\n%s the lector config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("lector config\nlector config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Lector", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

// Package main provides the entry point for the Lector CLI application.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/lector/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	ttsEngine    string
	voiceModel   string
	speechSpeed  float64
	language     string
	autoScroll   bool
	focusMode    bool
	speakOnOpen  bool
	showAllFiles bool
	mouse        bool
	debug        bool
	logFile      string

	rootCmd = &cobra.Command{
		Use:   "lector [PATH]",
		Short: "Read books in the terminal, out loud",
		Long: paragraph(
			fmt.Sprintf("\nRead books in the terminal, %s. Lector keeps your place in every book, highlights the sentence being spoken and follows it as playback advances.", keyword("out loud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(_ *cobra.Command) error {
	// grab config values from Viper
	ttsEngine = viper.GetString("tts")
	voiceModel = viper.GetString("voice")
	speechSpeed = viper.GetFloat64("speed")
	language = viper.GetString("language")
	autoScroll = viper.GetBool("auto_scroll")
	focusMode = viper.GetBool("focus")
	speakOnOpen = viper.GetBool("speak")
	showAllFiles = viper.GetBool("all")
	mouse = viper.GetBool("mouse")

	// An empty engine would fail at book-open time; fall back to the
	// usual chain instead.
	if ttsEngine == "" {
		ttsEngine = "piper,gtts"
	}
	if speechSpeed < 0.1 || speechSpeed > 3.0 {
		return fmt.Errorf("speed must be between 0.1 and 3.0, got %.2f", speechSpeed)
	}
	if len(language) < 2 || len(language) > 5 {
		return fmt.Errorf("language code must be 2-5 characters, got %q", language)
	}
	if voiceModel != "" {
		expanded, err := homedir.Expand(voiceModel)
		if err != nil {
			return fmt.Errorf("unable to expand voice path: %w", err)
		}
		voiceModel = expanded
		if _, err := os.Stat(voiceModel); os.IsNotExist(err) {
			return fmt.Errorf("voice model does not exist: %s", voiceModel)
		}
	}

	closer, err := setupLog()
	if err != nil {
		return err
	}
	logCloser = closer
	return nil
}

func execute(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return runTUI("", "")
	}

	expanded, err := homedir.Expand(args[0])
	if err != nil {
		return fmt.Errorf("unable to expand path: %w", err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", args[0], err)
	}
	p, err := filepath.Abs(expanded)
	if err != nil {
		return fmt.Errorf("unable to get absolute path: %w", err)
	}

	// A directory roots the library picker; a file opens directly.
	if info.IsDir() {
		return runTUI("", p)
	}
	return runTUI(p, "")
}

func runTUI(path, dir string) error {
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Path = path
	cfg.WorkingDirectory = dir
	cfg.Engine = ttsEngine
	cfg.Voice = voiceModel
	cfg.Speed = speechSpeed
	cfg.Language = language
	cfg.Speak = speakOnOpen
	cfg.AutoScroll = autoScroll
	cfg.Focus = focusMode
	cfg.ShowAllFiles = showAllFiles
	cfg.EnableMouse = mouse

	if cmd := viper.GetString("assistant_cmd"); cmd != "" {
		cfg.AssistantCmd = cmd
	}

	cfg.CacheDir, err = resolveDir(viper.GetString("cache_dir"), defaultCacheDir)
	if err != nil {
		return err
	}
	cfg.ProgressDir, err = resolveDir(viper.GetString("progress_dir"), defaultProgressDir)
	if err != nil {
		return err
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// resolveDir expands a configured directory, or falls back to the
// platform default. Empty results are fine; they disable whatever
// wanted the directory.
func resolveDir(configured string, fallback func() string) (string, error) {
	if configured == "" {
		return fallback(), nil
	}
	expanded, err := homedir.Expand(configured)
	if err != nil {
		return "", fmt.Errorf("unable to expand path %q: %w", configured, err)
	}
	return expanded, nil
}

func defaultCacheDir() string {
	scope := gap.NewScope(gap.User, "lector")
	if dir, err := scope.CacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "audio")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", "lector", "audio")
}

func defaultProgressDir() string {
	scope := gap.NewScope(gap.User, "lector")
	if dirs, err := scope.DataDirs(); err == nil && len(dirs) > 0 {
		return dirs[0]
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "lector")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_ = logCloser()
		os.Exit(1)
	}
	_ = logCloser()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path")
	rootCmd.Flags().StringVar(&ttsEngine, "tts", "", "speech engine, or a comma-separated fallback chain (piper/gtts/mock)")
	rootCmd.Flags().StringVar(&voiceModel, "voice", "", "piper voice model path")
	rootCmd.Flags().Float64Var(&speechSpeed, "speed", 1.0, "speaking speed multiplier")
	rootCmd.Flags().StringVar(&language, "language", "en", "gtts language code")
	rootCmd.Flags().BoolVar(&autoScroll, "auto-scroll", true, "follow the spoken sentence as playback advances")
	rootCmd.Flags().BoolVar(&focusMode, "focus", false, "keep the spoken sentence centered while following")
	rootCmd.Flags().BoolVar(&speakOnOpen, "speak", false, "start speaking as soon as the book opens")
	rootCmd.Flags().BoolVarP(&showAllFiles, "all", "a", false, "show hidden and ignored files in the library")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", true, "enable mouse (wheel scrolls, click jumps)")

	// Config bindings
	_ = viper.BindPFlag("tts", rootCmd.Flags().Lookup("tts"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("speed", rootCmd.Flags().Lookup("speed"))
	_ = viper.BindPFlag("language", rootCmd.Flags().Lookup("language"))
	_ = viper.BindPFlag("auto_scroll", rootCmd.Flags().Lookup("auto-scroll"))
	_ = viper.BindPFlag("focus", rootCmd.Flags().Lookup("focus"))
	_ = viper.BindPFlag("speak", rootCmd.Flags().Lookup("speak"))
	_ = viper.BindPFlag("all", rootCmd.Flags().Lookup("all"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	viper.SetDefault("tts", "piper,gtts")
	viper.SetDefault("speed", 1.0)
	viper.SetDefault("language", "en")
	viper.SetDefault("auto_scroll", true)
	viper.SetDefault("mouse", true)
	viper.SetDefault("all", false)

	rootCmd.AddCommand(listCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "lector")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "lector")}, dirs...)
	}

	if c := os.Getenv("LECTOR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("lector")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("lector")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "lector.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

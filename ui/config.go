package ui

// Config carries everything the TUI needs at launch. Most fields are
// filled from flags and the config file in main; the env-tagged ones
// can also come straight from the environment.
type Config struct {
	// Path is the book to open. Empty opens the library picker.
	Path string

	// WorkingDirectory roots the library picker's search. Empty means
	// the process working directory.
	WorkingDirectory string

	HomeDir string `env:"HOME"`

	// Speech synthesis.
	Engine   string  // engine name or comma-separated fallback chain
	Voice    string  // piper voice model path
	Speed    float64 // speaking speed multiplier, 1.0 = normal
	Language string  // gtts language code
	Speak    bool    // start speaking as soon as the book opens

	// View toggles used when the book has no saved progress record.
	AutoScroll bool
	Focus      bool

	// AssistantCmd is the command the assistant overlay pipes its
	// prompt into. Empty disables the overlay.
	AssistantCmd string `env:"LECTOR_ASSISTANT_CMD"`

	CacheDir    string // synthesized audio cache location
	ProgressDir string // progress record location

	ShowAllFiles bool // include hidden and ignored files in the picker
	EnableMouse  bool `env:"LECTOR_ENABLE_MOUSE" envDefault:"true"`

	// ScrollMargin is the context kept between the highlight and the
	// window edge while auto-scrolling.
	ScrollMargin int `env:"LECTOR_SCROLL_MARGIN" envDefault:"2"`
}

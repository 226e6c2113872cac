package ui

import "github.com/charmbracelet/lipgloss"

var (
	fuchsia   = lipgloss.Color("#EE6FF8")
	green     = lipgloss.Color("#04B575")
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	subtleColor     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	verseColor      = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(fuchsia).
			Bold(true)

	statusBarScrollPosStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarMessageScrollPosStyle = lipgloss.NewStyle().
					Foreground(mintGreen).
					Background(darkGreen).
					Render

	statusBarMessageHelpStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("#B6FFE4")).
					Background(green).
					Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render

	chapterTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#2B2A60", Dark: "#ECECEC"}).
				Bold(true)

	// The spoken sentence. Background highlight so it reads at a
	// glance from across the room.
	sentenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(lipgloss.AdaptiveColor{Light: "#FFD76E", Dark: "#C9A227"})

	verseStyle = lipgloss.NewStyle().
			Foreground(verseColor)

	subtleStyle = lipgloss.NewStyle().
			Foreground(subtleColor)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#230B0B")).
			Background(lipgloss.Color("#F1B8B8")).
			Padding(0, 1)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}).
			Padding(1, 2)

	overlayTitleStyle = lipgloss.NewStyle().
				Foreground(fuchsia).
				Bold(true)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(fuchsia).
				Bold(true)

	matchedCharStyle = lipgloss.NewStyle().
				Underline(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))
)

func lectorLogoView() string {
	return logoStyle.Render(" Lector ")
}

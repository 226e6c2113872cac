package main

import (
	"fmt"
	"os"
	"strings"

	humanize "github.com/dustin/go-humanize"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/lector/internal/progress"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List recently read books",
	Long:    paragraph(fmt.Sprintf("\n%s the books you have been reading, newest first, with how far you got in each.", keyword("List"))),
	Example: paragraph("lector list"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		dir, err := resolveDir(viper.GetString("progress_dir"), defaultProgressDir)
		if err != nil {
			return err
		}
		store, err := progress.Open(dir)
		if err != nil {
			return fmt.Errorf("unable to open progress store: %w", err)
		}

		records := store.Records()
		if len(records) == 0 {
			fmt.Println("No books read yet.")
			return nil
		}

		isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
		for _, rec := range records {
			pct := fmt.Sprintf("%3.0f%%", rec.Percent*100)
			when := humanize.Time(rec.Timestamp)
			if isTerminal {
				fmt.Printf("%s  %s  %s\n", keyword(pct), tildeAbbrev(rec.Path), subtle(when))
			} else {
				fmt.Printf("%s\t%s\t%s\n", pct, rec.Path, when)
			}
		}
		return nil
	},
}

// tildeAbbrev shortens a path under the home directory for display.
func tildeAbbrev(path string) string {
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + strings.TrimPrefix(path, home)
	}
	return path
}

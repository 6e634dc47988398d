package cmds

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"
)

func loadSettings() (*settings.Settings, error) {
	return settings.FromViper(viper.GetViper())
}

// The working directory layout is DIR/data for sources and DIR/storage for
// the persisted index.
func dataDir(path string) string {
	return filepath.Join(path, "data")
}

func storageDir(path string) string {
	return filepath.Join(path, "storage")
}

// printMarkdown renders text with glamour when stdout is a terminal.
func printMarkdown(w io.Writer, text string) {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		if styled, err := glamour.Render(text, "dark"); err == nil {
			_, _ = fmt.Fprint(w, styled)
			return
		}
	}
	_, _ = fmt.Fprintln(w, text)
}

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

func init() {
	// Keep colors when piped; NO_COLOR still disables them.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

func success(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ "+format+"\n", a...)
}

func warn(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "! "+format+"\n", a...)
}

// fail prints title and detail to w and returns an error carrying the title,
// which cobra does not print again.
func fail(w io.Writer, title string, err error) error {
	red.Fprintf(w, "%s\n", title)
	if err != nil {
		fmt.Fprintf(w, "  %v\n", err)
	}
	return fmt.Errorf("%s", title)
}

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/ije/gox/term"
	xterm "golang.org/x/term"
)

// isTerminal reports whether w is a terminal, in which case output is
// colored.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && xterm.IsTerminal(int(f.Fd()))
}

func paint(w io.Writer, color string, s string) string {
	if !isTerminal(w) || os.Getenv("NO_COLOR") != "" {
		return s
	}
	switch color {
	case "red":
		return term.Red(s)
	case "green":
		return term.Green(s)
	case "cyan":
		return term.Cyan(s)
	case "dim":
		return term.Dim(s)
	}
	return s
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(w io.Writer, err error, hint string) {
	fmt.Fprintln(w, paint(w, "red", "error: "+err.Error()))
	if hint != "" {
		fmt.Fprintln(w, paint(w, "dim", "hint: "+hint))
	}
}

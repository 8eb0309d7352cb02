package cli

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"github.com/esm-dev/noderesolve"
)

const formatHelpMessage = `Print the module format of a resolved URL or file.

Usage: noderesolve format <url|path> [options]

Options:
  --root       Directory used as the filesystem root
  --config     Config file (JSON or YAML), default is "noderesolve.json" if it exists
  --json       Print the result as JSON
  --help, -h   Show help message
`

// Format prints the format of a URL or a file path.
func Format(args []string, stdout io.Writer, stderr io.Writer) int {
	flags := newFlagSet("format")
	jsonOutput := flags.Bool("json", false, "print the result as JSON")
	positional, help, err := parseCommandFlags(flags, args)
	if err != nil {
		printError(stderr, err, "")
		return 2
	}
	if help || len(positional) != 1 {
		fmt.Fprint(stdout, formatHelpMessage)
		if help {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		printError(stderr, err, "")
		return 1
	}
	resolver, err := newResolver(cfg)
	if err != nil {
		printError(stderr, err, "")
		return 1
	}
	defer resolver.Close()

	u, err := url.Parse(positional[0])
	if err != nil || u.Scheme == "" {
		p := positional[0]
		if cfg.Root == "" {
			if p, err = filepath.Abs(p); err != nil {
				printError(stderr, err, "")
				return 1
			}
		}
		u = noderesolve.PathToFileURL(filepath.ToSlash(p))
	}
	f, err := resolver.ClassifyFormat(u)
	if err != nil {
		printError(stderr, err, "")
		return 1
	}
	if *jsonOutput {
		printJSON(stdout, map[string]any{"url": u.String(), "format": f})
		return 0
	}
	if f == noderesolve.FormatNone {
		fmt.Fprintln(stdout, paint(stdout, "dim", "none"))
	} else {
		fmt.Fprintln(stdout, paint(stdout, "cyan", string(f)))
	}
	return 0
}

package cli

import (
	"fmt"
	"io"

	"github.com/esm-dev/noderesolve/server"
	"github.com/ije/gox/term"
)

const serveHelpMessage = `Serve the resolve API over HTTP.

Usage: noderesolve serve [options]

Endpoints:
  /resolve?specifier=&referrer=[&mode=][&conditions=]
  /format?url=
  /status.json

Options:
  --config     Config file (JSON or YAML), default is "noderesolve.json" if it exists
  --root       Directory used as the filesystem root
  --port       Port to serve on, default is 8080
  --help, -h   Show help message
`

// Serve serves the resolve API.
func Serve(args []string, stdout io.Writer, stderr io.Writer) int {
	flags := newFlagSet("serve")
	port := flags.Uint("port", 0, "port to serve on")
	_, help, err := parseCommandFlags(flags, args)
	if err != nil {
		fmt.Fprintln(stderr, term.Red(err.Error()))
		return 2
	}
	if help {
		fmt.Fprint(stdout, serveHelpMessage)
		return 0
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintln(stderr, term.Red(err.Error()))
		return 1
	}
	if *port > 0 && *port < 65536 {
		cfg.Port = uint16(*port)
	}

	fmt.Fprintf(stdout, term.Green("Server is ready on http://localhost:%d\n"), cfg.Port)
	if err = server.Serve(cfg, VERSION); err != nil {
		fmt.Fprintln(stderr, term.Red(err.Error()))
		return 1
	}
	return 0
}

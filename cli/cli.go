package cli

import (
	"fmt"
	"io"
	"os"
)

// may be changed by `-ldflags`
var VERSION = "v0.1.0"

const helpMessage = "\033[30mnoderesolve - Resolve module specifiers the way Node.js does.\033[0m" + `

Usage: noderesolve [command] [options]

Commands:
  resolve <specifier>   Resolve a specifier from a referrer module
  format <url|path>     Print the module format of a resolved file
  serve                 Serve the resolve API over HTTP
  version               Show the version

Options:
  --version, -v         Show the version
  --help, -h            Display this help message
`

// Run runs the command named by os.Args and exits with its status.
func Run() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stdout, helpMessage)
		return 0
	}
	switch command := args[0]; command {
	case "resolve":
		return Resolve(args[1:], stdout, stderr)
	case "format":
		return Format(args[1:], stdout, stderr)
	case "serve":
		return Serve(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, "noderesolve "+VERSION)
	default:
		for _, arg := range args {
			if arg == "--version" {
				fmt.Fprintln(stdout, "noderesolve "+VERSION)
				return 0
			}
			if arg == "-v" {
				fmt.Fprintln(stdout, VERSION)
				return 0
			}
		}
		fmt.Fprint(stdout, helpMessage)
	}
	return 0
}

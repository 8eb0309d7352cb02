package cli

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/esm-dev/noderesolve"
	"github.com/esm-dev/noderesolve/config"
)

const resolveHelpMessage = `Resolve a module specifier the way Node.js does.

Usage: noderesolve resolve <specifier> [options]

Arguments:
  specifier                Module specifier, e.g. "./a.js", "react", "#internal"

Options:
  --from                   Path or URL of the referrer module, default is
                           "index.js" in the current directory
  --mode                   "import" (default) or "require"
  --conditions             Comma separated export conditions, defaults to the
                           conditions of the mode
  --node-version           Node.js version selecting the builtin modules
  --legacy-main-fallback   Probe "main" and index files of packages without "exports"
  --rewrite-ts             Resolve .js imports of TypeScript files to .ts files
  --root                   Directory used as the filesystem root
  --config                 Config file (JSON or YAML), default is "noderesolve.json" if it exists
  --json                   Print the result as JSON
  --help, -h               Show help message
`

// Resolve resolves a specifier and prints the resolved URL.
func Resolve(args []string, stdout io.Writer, stderr io.Writer) int {
	flags := newFlagSet("resolve")
	from := flags.String("from", "", "path or URL of the referrer module")
	jsonOutput := flags.Bool("json", false, "print the result as JSON")
	positional, help, err := parseCommandFlags(flags, args)
	if err != nil {
		printError(stderr, err, "")
		return 2
	}
	if help || len(positional) != 1 {
		fmt.Fprint(stdout, resolveHelpMessage)
		if help {
			return 0
		}
		return 2
	}
	specifier := positional[0]

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

	referrer, err := referrerOf(*from, cfg.Root != "")
	if err != nil {
		printError(stderr, err, "")
		return 1
	}

	var res noderesolve.Resolution
	if cfg.Mode == config.ModeRequire {
		var u *url.URL
		u, err = resolver.ResolveRequire(specifier, referrer, cfg.Conditions)
		if err == nil {
			res.URL = u
			res.Format, _, err = resolver.ProbeFormat(u)
		}
	} else {
		if strings.HasPrefix(referrer, "/") {
			referrer = noderesolve.PathToFileURL(referrer).String()
		}
		res, err = resolver.ResolveImport(specifier, referrer, cfg.Conditions)
	}
	if err != nil {
		if *jsonOutput {
			body := map[string]any{"message": err.Error()}
			var e *noderesolve.Error
			if errors.As(err, &e) {
				body["code"] = e.Code
				if e.URL != "" {
					body["url"] = e.URL
				}
			}
			printJSON(stdout, map[string]any{"error": body})
		} else {
			printError(stderr, err, hintOf(specifier, err))
		}
		return 1
	}

	if *jsonOutput {
		body := map[string]any{
			"url":    res.URL.String(),
			"format": res.Format,
		}
		if res.URL.Scheme == "file" {
			if p, err := noderesolve.FileURLToPath(res.URL); err == nil {
				body["path"] = p
			}
		}
		printJSON(stdout, body)
		return 0
	}
	line := paint(stdout, "green", res.URL.String())
	if res.Format != noderesolve.FormatNone {
		line += " " + paint(stdout, "dim", "("+string(res.Format)+")")
	}
	fmt.Fprintln(stdout, line)
	return 0
}

// referrerOf returns the referrer given by --from, made absolute against
// the current directory. Under a virtual root the path is kept as is.
func referrerOf(from string, virtualRoot bool) (string, error) {
	if from == "" {
		if virtualRoot {
			return "/index.js", nil
		}
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.ToSlash(filepath.Join(cwd, "index.js")), nil
	}
	if strings.Contains(from, ":") || strings.HasPrefix(from, "/") || virtualRoot {
		return from, nil
	}
	abs, err := filepath.Abs(from)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}

// hintOf explains a failure caused by a misspelled package name.
func hintOf(specifier string, err error) string {
	if !errors.Is(err, noderesolve.ErrModuleNotFound) && !errors.Is(err, noderesolve.ErrInvalidModuleSpecifier) {
		return ""
	}
	if specifier == "" || strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") || strings.HasPrefix(specifier, "#") || strings.Contains(specifier, ":") {
		return ""
	}
	name := specifier
	segments := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") && len(segments) > 1 {
		name = segments[0] + "/" + segments[1]
	} else {
		name = segments[0]
	}
	if noderesolve.IsValidPackageName(name) {
		return ""
	}
	return fmt.Sprintf("%q is not a valid npm package name", name)
}

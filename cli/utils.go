package cli

import (
	"flag"
	"io"
	"os"
	"strings"

	"github.com/esm-dev/noderesolve"
	"github.com/esm-dev/noderesolve/config"
	"github.com/ije/gox/log"
)

var defaultConfigFiles = []string{"noderesolve.json", "noderesolve.yaml", "noderesolve.yml"}

// commandFlags are the flags every command accepts.
type commandFlags struct {
	*flag.FlagSet
	config             *string
	root               *string
	mode               *string
	conditions         *string
	nodeVersion        *string
	legacyMainFallback *bool
	rewriteTypeScript  *bool
	cacheSize          *int64
	logLevel           *string
}

func newFlagSet(name string) *commandFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return &commandFlags{
		FlagSet:            fs,
		config:             fs.String("config", "", "the config file path"),
		root:               fs.String("root", "", "directory used as the filesystem root"),
		mode:               fs.String("mode", "", `"import" or "require"`),
		conditions:         fs.String("conditions", "", "comma separated export conditions"),
		nodeVersion:        fs.String("node-version", "", "Node.js version selecting the builtin modules"),
		legacyMainFallback: fs.Bool("legacy-main-fallback", false, `probe "main" and index files of packages without "exports"`),
		rewriteTypeScript:  fs.Bool("rewrite-ts", false, "resolve .js imports of TypeScript files to .ts files"),
		cacheSize:          fs.Int64("cache-size", 0, "number of cached stat and realpath results"),
		logLevel:           fs.String("log-level", "", "log level"),
	}
}

// parseCommandFlags parses args allowing flags after positional arguments.
func parseCommandFlags(flags *commandFlags, args []string) (positional []string, help bool, err error) {
	var flagArgs []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if arg == "-h" || arg == "--help" {
			help = true
			continue
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positional = append(positional, arg)
			continue
		}
		flagArgs = append(flagArgs, arg)
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if f := flags.Lookup(name); f != nil && !isBoolFlag(f) && i+1 < len(args) {
			i++
			flagArgs = append(flagArgs, args[i])
		}
	}
	err = flags.Parse(flagArgs)
	return
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// loadConfig loads the config file named by --config, or the default one
// if it exists, and applies the command line flags to it.
func loadConfig(flags *commandFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	cfile := *flags.config
	if cfile == "" {
		for _, name := range defaultConfigFiles {
			if existsFile(name) {
				cfile = name
				break
			}
		}
	}
	if cfile != "" {
		cfg, err = config.Load(cfile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if set["mode"] && *flags.mode != cfg.Mode {
		cfg.Mode = *flags.mode
		if !set["conditions"] {
			cfg.Conditions = nil
		}
	}
	if set["conditions"] {
		cfg.Conditions = []string{}
		for _, p := range strings.Split(*flags.conditions, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Conditions = append(cfg.Conditions, p)
			}
		}
	}
	if set["root"] {
		cfg.Root = *flags.root
	}
	if set["node-version"] {
		cfg.NodeVersion = *flags.nodeVersion
	}
	if set["legacy-main-fallback"] {
		cfg.LegacyMainFallback = *flags.legacyMainFallback
	}
	if set["rewrite-ts"] {
		cfg.RewriteTypeScript = *flags.rewriteTypeScript
	}
	if set["cache-size"] {
		cfg.CacheSize = *flags.cacheSize
	}
	if set["log-level"] {
		cfg.LogLevel = *flags.logLevel
	}
	if err = cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newResolver creates a resolver for a command. Warnings are logged at the
// configured level.
func newResolver(cfg *config.Config) (*noderesolve.Resolver, error) {
	options, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	logger := &log.Logger{}
	logger.SetLevelByName(cfg.LogLevel)
	options.Logger = logger
	return noderesolve.New(options)
}

func existsFile(filename string) bool {
	fi, err := os.Stat(filename)
	return err == nil && !fi.IsDir()
}

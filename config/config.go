package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/esm-dev/noderesolve"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration of a resolver and its HTTP server.
type Config struct {
	Root               string   `json:"root,omitempty" yaml:"root,omitempty"`
	Mode               string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Conditions         []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	NodeVersion        string   `json:"nodeVersion,omitempty" yaml:"nodeVersion,omitempty"`
	LegacyMainFallback bool     `json:"legacyMainFallback,omitempty" yaml:"legacyMainFallback,omitempty"`
	RewriteTypeScript  bool     `json:"rewriteTypeScript,omitempty" yaml:"rewriteTypeScript,omitempty"`
	CacheSize          int64    `json:"cacheSize,omitempty" yaml:"cacheSize,omitempty"`
	Port               uint16   `json:"port,omitempty" yaml:"port,omitempty"`
	CorsAllowOrigins   []string `json:"corsAllowOrigins,omitempty" yaml:"corsAllowOrigins,omitempty"`
	LogDir             string   `json:"logDir,omitempty" yaml:"logDir,omitempty"`
	LogLevel           string   `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	AccessLog          bool     `json:"accessLog,omitempty" yaml:"accessLog,omitempty"`
}

const (
	ModeImport  = "import"
	ModeRequire = "require"
)

// Load loads the config from the given JSON or YAML file.
func Load(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("fail to read config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(&cfg)
	default:
		err = json.NewDecoder(file).Decode(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("fail to parse config: %w", err)
	}
	if cfg.Root != "" {
		if !filepath.IsAbs(cfg.Root) {
			cfg.Root = filepath.Join(filepath.Dir(filename), cfg.Root)
		}
		cfg.Root, err = filepath.Abs(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("fail to get absolute path of the root directory: %w", err)
		}
	}
	if err = cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the config used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.Normalize(); err != nil {
		// only an invalid mode fails and the zero config has none
		panic(err)
	}
	return cfg
}

// Normalize validates the mode and fills unset fields with defaults, reading
// NODERESOLVE_* environment variables. Conditions default to the ones of
// the mode.
func (c *Config) Normalize() error {
	switch c.Mode {
	case "":
		c.Mode = ModeImport
	case ModeImport, ModeRequire:
	default:
		return fmt.Errorf("invalid mode %q, expected %q or %q", c.Mode, ModeImport, ModeRequire)
	}
	if len(c.Conditions) == 0 {
		if v := os.Getenv("NODERESOLVE_CONDITIONS"); v != "" {
			c.Conditions = splitList(v)
		}
	}
	if len(c.Conditions) == 0 {
		if c.Mode == ModeRequire {
			c.Conditions = append([]string{}, noderesolve.DefaultRequireConditions...)
		} else {
			c.Conditions = append([]string{}, noderesolve.DefaultImportConditions...)
		}
	}
	if c.NodeVersion == "" {
		c.NodeVersion = strings.TrimPrefix(os.Getenv("NODERESOLVE_NODE_VERSION"), "v")
	} else {
		c.NodeVersion = strings.TrimPrefix(c.NodeVersion, "v")
	}
	if c.CacheSize < 0 {
		c.CacheSize = 0
	}
	if c.Port == 0 {
		c.Port = 8080
		if v := os.Getenv("NODERESOLVE_PORT"); v != "" {
			if p, e := strconv.Atoi(v); e == nil && p > 0 && p < 65536 {
				c.Port = uint16(p)
			}
		}
	}
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" && len(c.CorsAllowOrigins) == 0 {
		c.CorsAllowOrigins = splitList(v)
	}
	if c.LogDir == "" {
		if v := os.Getenv("NODERESOLVE_LOG_DIR"); v != "" {
			c.LogDir = v
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				homeDir = "/tmp"
			}
			c.LogDir = path.Join(homeDir, ".noderesolve", "log")
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv("NODERESOLVE_LOG_LEVEL")
		if c.LogLevel == "" {
			c.LogLevel = "info"
		}
	}
	if !c.AccessLog {
		c.AccessLog = os.Getenv("ACCESS_LOG") == "true"
	}
	return nil
}

// Options returns the resolver options described by the config. The
// filesystem is rooted at Root when it is set.
func (c *Config) Options() (noderesolve.Options, error) {
	options := noderesolve.Options{
		CacheSize:          c.CacheSize,
		NodeVersion:        c.NodeVersion,
		LegacyMainFallback: c.LegacyMainFallback,
		RewriteTypeScript:  c.RewriteTypeScript,
	}
	if c.Root != "" {
		fs, err := noderesolve.DirFS(c.Root)
		if err != nil {
			return options, fmt.Errorf("fail to open root directory: %w", err)
		}
		options.FS = fs
	}
	return options, nil
}

func splitList(s string) []string {
	var list []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			list = append(list, p)
		}
	}
	return list
}

// Package pkgscope finds and caches the package.json that governs a file.
package pkgscope

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/fileurl"
	"github.com/esm-dev/noderesolve/internal/fsys"
	"github.com/esm-dev/noderesolve/internal/nodepath"
	"github.com/esm-dev/noderesolve/internal/npm"
	logx "github.com/ije/gox/log"
	syncx "github.com/ije/gox/sync"
)

// Package types.
const (
	TypeNone     = "none"
	TypeCommonJS = "commonjs"
	TypeModule   = "module"
)

// Config is the resolution-relevant content of a package.json file.
// Exports and Imports are nil when the field is missing or null.
type Config struct {
	Exists    bool
	PjsonPath string
	Name      string
	Main      string
	HasMain   bool
	Type      string
	Exports   any
	Imports   any
}

// Dir returns the directory of the package.json with a trailing slash.
func (c *Config) Dir() string {
	return strings.TrimSuffix(c.PjsonPath, "package.json")
}

// Reader reads package.json files and caches the results by path for the
// lifetime of the reader. It is safe for concurrent use.
type Reader struct {
	fs     fsys.FS
	logger *logx.Logger
	cache  sync.Map
	lock   syncx.KeyedMutex
}

// NewReader returns a reader over fs. A nil logger discards debug output.
func NewReader(fs fsys.FS, logger *logx.Logger) *Reader {
	if logger == nil {
		logger = &logx.Logger{}
		logger.SetQuite(true)
	}
	return &Reader{fs: fs, logger: logger}
}

type cacheEntry struct {
	config *Config
	err    error
}

// Read returns the package config stored at pjsonPath. A missing file is
// returned with Exists=false. from describes the request for error
// messages, e.g. `"./x" from /a/b.js`. An unparsable file is cached too,
// and every later read returns the error of the first one.
func (r *Reader) Read(pjsonPath string, from string) (*Config, error) {
	if v, ok := r.cache.Load(pjsonPath); ok {
		e := v.(cacheEntry)
		return e.config, e.err
	}

	unlock := r.lock.Lock(pjsonPath)
	defer unlock()

	// check cache again after lock
	if v, ok := r.cache.Load(pjsonPath); ok {
		e := v.(cacheEntry)
		return e.config, e.err
	}

	config := &Config{PjsonPath: pjsonPath, Type: TypeNone}
	data, err := r.fs.ReadFile(pjsonPath)
	if err != nil {
		if !errors.Is(err, fsys.ErrNotExist) {
			r.logger.Debugf("pkgscope: read %s: %v", pjsonPath, err)
		}
		r.cache.Store(pjsonPath, cacheEntry{config: config})
		return config, nil
	}

	p, err := npm.ParsePackageJSON(data)
	if err != nil {
		e := errs.NewInvalidPackageConfig(pjsonPath, from, npm.SyntaxMessage(err))
		e.Err = err
		r.logger.Debugf("pkgscope: invalid %s: %v", pjsonPath, err)
		r.cache.Store(pjsonPath, cacheEntry{err: e})
		return nil, e
	}

	config.Exists = true
	config.Name = p.Name
	config.Main = p.Main
	config.HasMain = p.HasMain
	if p.Type != "" {
		config.Type = p.Type
	}
	if p.HasExports {
		config.Exports = p.Exports
	}
	if p.HasImports {
		config.Imports = p.Imports
	}
	r.logger.Debugf("pkgscope: loaded %s (name=%q type=%s)", pjsonPath, config.Name, config.Type)
	r.cache.Store(pjsonPath, cacheEntry{config: config})
	return config, nil
}

// ScopeOfPath returns the config of the nearest package.json above path.
// A path ending in "/" is treated as a directory. The walk stops at the
// root, and at node_modules directories, which never own a scope.
func (r *Reader) ScopeOfPath(path string) (*Config, error) {
	dir := path
	if !strings.HasSuffix(path, "/") {
		dir = nodepath.Dirname(path)
	}
	for {
		pjsonPath := nodepath.Join(dir, "package.json")
		if strings.HasSuffix(pjsonPath, "node_modules/package.json") {
			return &Config{PjsonPath: pjsonPath, Type: TypeNone}, nil
		}
		config, err := r.Read(pjsonPath, path)
		if err != nil {
			return nil, err
		}
		if config.Exists {
			return config, nil
		}
		parent := nodepath.Dirname(dir)
		if parent == dir {
			return config, nil
		}
		dir = parent
	}
}

// Scope returns the config of the package scope containing the file: URL u.
func (r *Reader) Scope(u *url.URL) (*Config, error) {
	path, err := fileurl.ToPath(u)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(u.Path, "/") && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return r.ScopeOfPath(path)
}

// PackageType returns the "type" of the scope containing u, or TypeNone.
// An unparsable package.json in the scope is an error.
func (r *Reader) PackageType(u *url.URL) (string, error) {
	config, err := r.Scope(u)
	if err != nil {
		return "", err
	}
	return config.Type, nil
}

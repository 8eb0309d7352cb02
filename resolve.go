// Package noderesolve resolves JavaScript module specifiers the way
// Node.js does, for both require() and import.
package noderesolve

import (
	"errors"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/esm-dev/noderesolve/internal/builtin"
	"github.com/esm-dev/noderesolve/internal/cjs"
	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/esm"
	"github.com/esm-dev/noderesolve/internal/exports"
	"github.com/esm-dev/noderesolve/internal/fileurl"
	"github.com/esm-dev/noderesolve/internal/format"
	"github.com/esm-dev/noderesolve/internal/fsys"
	"github.com/esm-dev/noderesolve/internal/nodepath"
	"github.com/esm-dev/noderesolve/internal/pkgscope"
	"github.com/esm-dev/noderesolve/internal/warn"
	"github.com/ije/gox/log"
	"github.com/ije/gox/set"
)

// Default condition sets.
var (
	DefaultImportConditions  = []string{"node", "import"}
	DefaultRequireConditions = []string{"node", "require"}
)

// Options configure a Resolver.
type Options struct {
	// FS is the filesystem to resolve against, the OS filesystem if nil.
	FS FS
	// CacheSize bounds the number of memoized stat and realpath results.
	// Zero disables the cache.
	CacheSize int64
	// NodeVersion selects the builtin modules of a Node.js release, e.g.
	// "20.11.0". Empty means the latest release.
	NodeVersion string
	// LegacyMainFallback enables "main" extension and index probing for
	// imports of packages without "exports".
	LegacyMainFallback bool
	// RewriteTypeScript resolves "./a.js" imported by a TypeScript file to
	// "./a.ts" when only the latter exists.
	RewriteTypeScript bool
	// Warnings receives deprecation warnings. If nil, they are logged to
	// Logger.
	Warnings WarningSink
	// Logger receives debug traces of every resolution. If nil, warnings
	// and errors are written to stderr and nothing is printed to stdout.
	Logger *log.Logger
}

// Resolution is the result of an import resolution.
type Resolution struct {
	URL    *url.URL
	Format Format
}

// Resolver resolves specifiers against one filesystem. Package scopes are
// cached for the lifetime of the resolver. It is safe for concurrent use.
type Resolver struct {
	fs       FS
	cached   *fsys.CachedFS
	scopes   *pkgscope.Reader
	matcher  *exports.Matcher
	esm      *esm.Resolver
	cjs      *cjs.Resolver
	builtins *builtin.Registry
	warnings *warn.Reporter
	logger   *log.Logger
}

// New returns a resolver configured by options.
func New(options Options) (*Resolver, error) {
	logger := options.Logger
	if logger == nil {
		logger = newDefaultLogger(os.Stderr)
	}
	fs := options.FS
	if fs == nil {
		fs = fsys.OS()
	}
	r := &Resolver{logger: logger}
	if options.CacheSize > 0 {
		cached, err := fsys.NewCachedFS(fs, options.CacheSize)
		if err != nil {
			return nil, err
		}
		r.cached = cached
		fs = cached
	}
	r.fs = fs

	sink := options.Warnings
	if sink == nil {
		sink = warn.LogSink{Logger: logger}
	}
	r.warnings = warn.NewReporter(sink)

	builtins := builtin.Default()
	if options.NodeVersion != "" {
		builtins = builtin.ForNodeVersion(options.NodeVersion)
	}
	r.builtins = builtins
	r.scopes = pkgscope.NewReader(fs, logger)
	r.matcher = exports.NewMatcher(r.scopes, r.warnings)
	r.esm = esm.New(fs, r.scopes, r.matcher, builtins, r.warnings, esm.Options{
		LegacyMainFallback: options.LegacyMainFallback,
		RewriteTypeScript:  options.RewriteTypeScript,
	})
	r.cjs = cjs.New(fs, r.scopes, r.matcher, builtins, r.warnings)
	return r, nil
}

// Close releases the filesystem cache.
func (r *Resolver) Close() {
	if r.cached != nil {
		r.cached.Close()
	}
}

// ResetWarnings lets every deprecation warning be reported again.
func (r *Resolver) ResetWarnings() {
	r.warnings.Reset()
}

// ResolveRequire resolves specifier as required by the file at
// referrerPath. referrerPath may also be a file: URL. A nil conditions
// selects DefaultRequireConditions.
func (r *Resolver) ResolveRequire(specifier string, referrerPath string, conditions []string) (*url.URL, error) {
	if conditions == nil {
		conditions = DefaultRequireConditions
	}
	basePath, err := toPath(referrerPath)
	if err != nil {
		return nil, err
	}
	u, err := r.cjs.Resolve(specifier, basePath, exports.NewConditions(conditions...))
	if err != nil {
		r.logger.Debugf("require %q from %s: %v", specifier, basePath, err)
		return nil, err
	}
	r.logger.Debugf("require %q from %s -> %s", specifier, basePath, u)
	return u, nil
}

// ResolveImport resolves specifier as imported by the module at
// referrerURL and classifies the result. A nil conditions selects
// DefaultImportConditions.
func (r *Resolver) ResolveImport(specifier string, referrerURL string, conditions []string) (Resolution, error) {
	if conditions == nil {
		conditions = DefaultImportConditions
	}
	parent, err := parseParentURL(referrerURL)
	if err != nil {
		return Resolution{}, err
	}
	u, err := r.esm.Resolve(specifier, parent, exports.NewConditions(conditions...))
	if err != nil {
		r.logger.Debugf("import %q from %s: %v", specifier, referrerURL, err)
		return Resolution{}, err
	}
	f, _, err := r.ProbeFormat(u)
	if err != nil {
		r.logger.Debugf("import %q from %s: %v", specifier, referrerURL, err)
		return Resolution{}, err
	}
	r.logger.Debugf("import %q from %s -> %s (%s)", specifier, referrerURL, u, f)
	return Resolution{URL: u, Format: f}, nil
}

// ResolveAuto uses the require() algorithm when conditions contain
// "require" and the import algorithm otherwise. referrer is a path or a
// URL.
func (r *Resolver) ResolveAuto(specifier string, referrer string, conditions []string) (Resolution, error) {
	if set.NewReadOnly(conditions...).Has("require") {
		u, err := r.ResolveRequire(specifier, referrer, conditions)
		if err != nil {
			return Resolution{}, err
		}
		f, _, err := r.ProbeFormat(u)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{URL: u, Format: f}, nil
	}
	if nodepath.IsAbsolute(referrer) {
		referrer = fileurl.PathToFileURL(referrer).String()
	}
	return r.ResolveImport(specifier, referrer, conditions)
}

// Resolve resolves specifier imported by parent and returns the URL as a
// string. Unlike ResolveImport it returns the computed URL of a missing
// file or of a directory instead of failing.
func (r *Resolver) Resolve(specifier string, parent string) (string, error) {
	res, err := r.ResolveImport(specifier, parent, nil)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) && e.URL != "" && (e.Code == errs.ModuleNotFound || e.Code == errs.UnsupportedDirImport) {
			return e.URL, nil
		}
		return "", err
	}
	return res.URL.String(), nil
}

// Builtins returns the names of the builtin modules, without the "node:"
// prefix.
func (r *Resolver) Builtins() []string {
	return r.builtins.Names()
}

// PackageType returns the "type" of the package scope containing the
// file: URL u: "module", "commonjs" or "none". An invalid package.json is
// an ERR_INVALID_PACKAGE_CONFIG error.
func (r *Resolver) PackageType(u *url.URL) (string, error) {
	return r.scopes.PackageType(u)
}

// ClassifyFormat returns the format of u, reading package scopes with r.
func (r *Resolver) ClassifyFormat(u *url.URL) (Format, error) {
	return format.Classify(u, r.scopes.PackageType)
}

// ProbeFormat is ClassifyFormat without the unknown extension error: ok
// is false for an unknown extension.
func (r *Resolver) ProbeFormat(u *url.URL) (f Format, ok bool, err error) {
	return format.Probe(u, r.scopes.PackageType)
}

// PackageTypeLookup returns the package type of the scope containing a
// file: URL.
type PackageTypeLookup = format.PackageTypeLookup

// ClassifyFormat returns the format of u, reading package types with
// lookup. A nil lookup treats every file as outside any package.
func ClassifyFormat(u *url.URL, lookup PackageTypeLookup) (Format, error) {
	return format.Classify(u, lookup)
}

func newDefaultLogger(w io.Writer) *log.Logger {
	logger := &log.Logger{}
	logger.SetLevelByName("warn")
	logger.SetQuite(true)
	logger.SetOutput(w)
	return logger
}

func parseParentURL(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		e := errs.NewInvalidArgValue("parentURL", s, "must be an absolute URL")
		e.Err = err
		return nil, e
	}
	return u, nil
}

func toPath(referrer string) (string, error) {
	if strings.HasPrefix(referrer, "file:") {
		return fileurl.ParseFileURL(referrer)
	}
	return nodepath.Resolve(referrer), nil
}

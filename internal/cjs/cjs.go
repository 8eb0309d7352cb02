// Package cjs implements the require() resolution algorithm.
package cjs

import (
	"net/url"
	"strings"

	"github.com/esm-dev/noderesolve/internal/builtin"
	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/exports"
	"github.com/esm-dev/noderesolve/internal/fileurl"
	"github.com/esm-dev/noderesolve/internal/fsys"
	"github.com/esm-dev/noderesolve/internal/nodepath"
	"github.com/esm-dev/noderesolve/internal/npm"
	"github.com/esm-dev/noderesolve/internal/pkgscope"
	"github.com/esm-dev/noderesolve/internal/warn"
)

type outcomeKind int

const (
	// the step does not apply, continue with the next one
	deferred outcomeKind = iota
	// a module was found, stop
	resolved
	// the right place was found but holds no module, stop
	notFound
)

type outcome struct {
	kind outcomeKind
	url  *url.URL
}

func (o outcome) done() bool {
	return o.kind != deferred
}

var (
	next = outcome{kind: deferred}
	stop = outcome{kind: notFound}
)

// Resolver resolves require() calls.
type Resolver struct {
	fs       fsys.FS
	scopes   *pkgscope.Reader
	matcher  *exports.Matcher
	builtins *builtin.Registry
	warnings *warn.Reporter
}

// New returns a resolver; scopes and matcher are shared with the other
// algorithms so package.json files are read once.
func New(fs fsys.FS, scopes *pkgscope.Reader, matcher *exports.Matcher, builtins *builtin.Registry, warnings *warn.Reporter) *Resolver {
	if builtins == nil {
		builtins = builtin.Default()
	}
	return &Resolver{fs: fs, scopes: scopes, matcher: matcher, builtins: builtins, warnings: warnings}
}

// Resolve resolves specifier as required from the file at basePath.
func (r *Resolver) Resolve(specifier string, basePath string, conditions exports.Conditions) (*url.URL, error) {
	if specifier == "" {
		return nil, errs.NewInvalidModuleSpecifier("", "must be a non-empty string", basePath)
	}
	o, err := r.require(specifier, basePath, conditions)
	if err != nil {
		return nil, err
	}
	if o.kind == resolved {
		return o.url, nil
	}
	return nil, errs.NewModuleNotFound(specifier, basePath, false)
}

func isRelative(x string) bool {
	return x == "." || x == ".." || strings.HasPrefix(x, "/") || strings.HasPrefix(x, "./") || strings.HasPrefix(x, "../")
}

func (r *Resolver) require(x string, y string, conditions exports.Conditions) (outcome, error) {
	if strings.HasPrefix(x, "node:") {
		u, err := url.Parse(x)
		if err != nil {
			return stop, nil
		}
		return outcome{kind: resolved, url: u}, nil
	}
	if r.builtins.MatchesFirstSegment(x) {
		return outcome{kind: resolved, url: &url.URL{Scheme: "node", Opaque: x}}, nil
	}

	if strings.HasPrefix(x, "/") {
		y = "/"
	}

	if isRelative(x) {
		p := nodepath.Resolve(nodepath.Dirname(y), x)
		if o, err := r.loadAsFile(p); err != nil || o.done() {
			return o, err
		}
		if o, err := r.loadAsDirectory(p); err != nil || o.done() {
			return o, err
		}
		return stop, nil
	}

	if strings.HasPrefix(x, "#") {
		return r.loadPackageImports(x, y, conditions)
	}

	if o, err := r.loadPackageSelf(x, y, conditions); err != nil || o.done() {
		return o, err
	}
	if o, err := r.loadNodeModules(x, nodepath.Dirname(y), conditions); err != nil || o.done() {
		return o, err
	}
	return stop, nil
}

// tryFile resolves p when it names a regular file.
func (r *Resolver) tryFile(p string) (outcome, error) {
	st, ok := r.fs.Stat(p)
	if !ok || !st.IsFile {
		return next, nil
	}
	real, err := r.fs.Realpath(p)
	if err != nil {
		return next, err
	}
	return outcome{kind: resolved, url: fileurl.PathToFileURL(real)}, nil
}

func (r *Resolver) tryFiles(candidates ...string) (outcome, error) {
	for _, p := range candidates {
		if o, err := r.tryFile(p); err != nil || o.done() {
			return o, err
		}
	}
	return next, nil
}

func (r *Resolver) loadAsFile(x string) (outcome, error) {
	return r.tryFiles(x, x+".js", x+".json", x+".node")
}

func (r *Resolver) loadIndex(x string) (outcome, error) {
	return r.tryFiles(x+"/index.js", x+"/index.json", x+"/index.node")
}

func (r *Resolver) loadAsDirectory(x string) (outcome, error) {
	pjsonPath := x + "/package.json"
	config, err := r.scopes.Read(pjsonPath, x)
	if err != nil {
		return next, err
	}
	if config.Main == "" {
		return r.loadIndex(x)
	}

	m := nodepath.Resolve(x, config.Main)
	if o, err := r.loadAsFile(m); err != nil || o.done() {
		return o, err
	}
	if o, err := r.loadIndex(m); err != nil || o.done() {
		return o, err
	}
	o, err := r.loadIndex(x)
	if err != nil {
		return o, err
	}
	if o.kind == resolved {
		r.warnings.Deprecate("DEP0128", "Invalid 'main' field in '"+pjsonPath+"'. Please either fix that or report it to the module author")
		return o, nil
	}
	return stop, nil
}

func (r *Resolver) loadNodeModules(x string, start string, conditions exports.Conditions) (outcome, error) {
	for _, dir := range nodeModulesPaths(start) {
		if o, err := r.loadPackageExports(x, dir, conditions); err != nil || o.done() {
			return o, err
		}
		if o, err := r.loadAsFile(dir + "/" + x); err != nil || o.done() {
			return o, err
		}
		if o, err := r.loadAsDirectory(dir + "/" + x); err != nil || o.done() {
			return o, err
		}
	}
	return next, nil
}

// nodeModulesPaths lists the node_modules directories above start, closest
// first, skipping directories that are themselves node_modules.
func nodeModulesPaths(start string) []string {
	parts := strings.Split(strings.TrimSuffix(start, "/"), "/")
	dirs := make([]string, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == "node_modules" {
			continue
		}
		dirs = append(dirs, strings.Join(parts[:i+1], "/")+"/node_modules")
	}
	return dirs
}

func (r *Resolver) loadPackageImports(x string, y string, conditions exports.Conditions) (outcome, error) {
	match, err := r.matcher.PackageImportsResolve(x, fileurl.PathToFileURL(y), conditions)
	if err != nil {
		return next, err
	}
	return r.resolveESMMatch(match)
}

func (r *Resolver) loadPackageExports(x string, dir string, conditions exports.Conditions) (outcome, error) {
	spec, ok := npm.ParsePackageName(x)
	if !ok {
		return next, nil
	}
	pjsonPath := dir + "/" + spec.Name + "/package.json"
	if st, ok := r.fs.Stat(pjsonPath); !ok || !st.IsFile {
		return next, nil
	}
	config, err := r.scopes.Read(pjsonPath, x)
	if err != nil {
		return next, err
	}
	if config.Exports == nil {
		return next, nil
	}
	match, err := r.matcher.PackageExportsResolve(fileurl.PathToFileURL(pjsonPath), spec.Subpath, config, nil, conditions)
	if err != nil {
		return next, err
	}
	return r.resolveESMMatch(match)
}

func (r *Resolver) loadPackageSelf(x string, y string, conditions exports.Conditions) (outcome, error) {
	config, err := r.scopes.ScopeOfPath(y)
	if err != nil {
		return next, err
	}
	if !config.Exists || config.Exports == nil {
		return next, nil
	}
	if config.Name == "" || !strings.HasPrefix(x+"/", config.Name+"/") {
		return next, nil
	}
	match, err := r.matcher.PackageExportsResolve(fileurl.PathToFileURL(config.PjsonPath), "."+x[len(config.Name):], config, nil, conditions)
	if err != nil {
		return next, err
	}
	return r.resolveESMMatch(match)
}

// resolveESMMatch accepts an exports or imports match only if it names an
// existing file. Matches outside the filesystem, like "node:net", are
// returned as they are.
func (r *Resolver) resolveESMMatch(match *url.URL) (outcome, error) {
	if match.Scheme != "file" {
		return outcome{kind: resolved, url: match}, nil
	}
	p, err := fileurl.ToPath(match)
	if err != nil {
		return next, err
	}
	if o, err := r.tryFile(p); err != nil || o.done() {
		return o, err
	}
	return stop, nil
}

// Package esm implements the import resolution algorithm.
package esm

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/esm-dev/noderesolve/internal/builtin"
	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/exports"
	"github.com/esm-dev/noderesolve/internal/fileurl"
	"github.com/esm-dev/noderesolve/internal/format"
	"github.com/esm-dev/noderesolve/internal/fsys"
	"github.com/esm-dev/noderesolve/internal/nodepath"
	"github.com/esm-dev/noderesolve/internal/npm"
	"github.com/esm-dev/noderesolve/internal/pkgscope"
	"github.com/esm-dev/noderesolve/internal/warn"
)

var encodedSeparatorRegexp = regexp.MustCompile(`(?i)%2f|%5c`)

// Options tune the resolver.
type Options struct {
	// LegacyMainFallback probes "main" with extensions and index files for
	// packages without "exports", reporting DEP0151 when an ES module was
	// found that way.
	LegacyMainFallback bool
	// RewriteTypeScript retries a missing .js, .mjs or .cjs file imported
	// from a TypeScript file with the matching TypeScript extension.
	RewriteTypeScript bool
}

// Resolver resolves import specifiers.
type Resolver struct {
	fs       fsys.FS
	scopes   *pkgscope.Reader
	matcher  *exports.Matcher
	builtins *builtin.Registry
	warnings *warn.Reporter
	options  Options
}

// New returns a resolver. It installs itself as the matcher's resolver
// for "imports" targets that name another package.
func New(fs fsys.FS, scopes *pkgscope.Reader, matcher *exports.Matcher, builtins *builtin.Registry, warnings *warn.Reporter, options Options) *Resolver {
	if builtins == nil {
		builtins = builtin.Default()
	}
	r := &Resolver{
		fs:       fs,
		scopes:   scopes,
		matcher:  matcher,
		builtins: builtins,
		warnings: warnings,
		options:  options,
	}
	matcher.PackageResolve = r.PackageResolve
	return r
}

// isRelative reports whether specifier is a relative or absolute path.
func isRelative(specifier string) bool {
	if specifier == "" {
		return false
	}
	if specifier[0] == '/' {
		return true
	}
	if specifier[0] == '.' {
		if len(specifier) == 1 || specifier[1] == '/' {
			return true
		}
		if specifier[1] == '.' && (len(specifier) == 2 || specifier[2] == '/') {
			return true
		}
	}
	return false
}

func isRemote(u *url.URL) bool {
	return u != nil && (u.Scheme == "http" || u.Scheme == "https")
}

// Resolve resolves specifier imported by parent.
func (r *Resolver) Resolve(specifier string, parent *url.URL, conditions exports.Conditions) (*url.URL, error) {
	if parent == nil {
		return nil, errs.NewInvalidArgValue("parentURL", "", "must be a URL")
	}

	var parsed *url.URL
	if isRelative(specifier) {
		if parent.Opaque == "" {
			if ref, err := url.Parse(specifier); err == nil {
				parsed = parent.ResolveReference(ref)
			}
		}
	} else if fileurl.HasScheme(specifier) {
		parsed, _ = url.Parse(specifier)
	}
	if parsed != nil && parsed.Scheme == "data" {
		return parsed, nil
	}

	if isRemote(parent) {
		return r.resolveRemote(specifier, parsed, parent)
	}

	if parsed != nil && parsed.Scheme == "node" {
		return parsed, nil
	}

	resolved, err := r.moduleResolve(specifier, parent, conditions)
	if err != nil {
		return nil, err
	}
	if resolved.Scheme != "file" {
		return resolved, nil
	}
	final, err := r.finalize(resolved, parent)
	if err != nil && r.options.RewriteTypeScript && isRelative(specifier) {
		if alt, ok := typeScriptAlternative(resolved, parent); ok && errors.Is(err, errs.ErrModuleNotFound) {
			if f, altErr := r.finalize(alt, parent); altErr == nil {
				return f, nil
			}
		}
	}
	return final, err
}

// resolveRemote applies the rules for modules imported by http: and https:
// modules, which may only import other remote modules by path.
func (r *Resolver) resolveRemote(specifier string, parsed *url.URL, parent *url.URL) (*url.URL, error) {
	const local = "remote imports cannot import from a local location."
	if isRelative(specifier) {
		if parsed != nil && !isRemote(parsed) {
			return nil, errs.NewNetworkImportDisallowed(specifier, parent.String(), local)
		}
		return parsed, nil
	}
	if r.builtins.IsBuiltin(specifier) {
		return nil, errs.NewNetworkImportDisallowed(specifier, parent.String(), local)
	}
	return nil, errs.NewNetworkImportDisallowed(specifier, parent.String(), "only relative and absolute specifiers are supported.")
}

func (r *Resolver) moduleResolve(specifier string, base *url.URL, conditions exports.Conditions) (*url.URL, error) {
	if isRelative(specifier) {
		ref, err := url.Parse(specifier)
		if err != nil || base.Opaque != "" {
			e := errs.NewUnsupportedResolveRequest(specifier, base.String())
			e.Err = err
			return nil, e
		}
		return base.ResolveReference(ref), nil
	}
	if base.Scheme == "file" && strings.HasPrefix(specifier, "#") {
		return r.matcher.PackageImportsResolve(specifier, base, conditions)
	}
	if fileurl.HasScheme(specifier) {
		if u, err := url.Parse(specifier); err == nil {
			return u, nil
		}
	}
	if base.Scheme == "data" && !r.builtins.Has(specifier) {
		return nil, errs.NewUnsupportedResolveRequest(specifier, base.String())
	}
	return r.PackageResolve(specifier, base, conditions)
}

// PackageResolve resolves a bare specifier: a builtin, the package's own
// name, or a package in a node_modules directory above base.
func (r *Resolver) PackageResolve(specifier string, base *url.URL, conditions exports.Conditions) (*url.URL, error) {
	if r.builtins.Has(specifier) {
		return &url.URL{Scheme: "node", Opaque: specifier}, nil
	}
	baseDisplay := fileurl.Display(base)
	if specifier == "" {
		return nil, errs.NewModuleNotFound(specifier, baseDisplay, true)
	}
	spec, ok := npm.ParsePackageName(specifier)
	if !ok {
		return nil, errs.NewInvalidModuleSpecifier(specifier, "is not a valid package name", baseDisplay)
	}
	if base.Scheme != "file" {
		return nil, errs.NewModuleNotFound(spec.Name, baseDisplay, true)
	}

	scope, err := r.scopes.Scope(base)
	if err != nil {
		return nil, err
	}
	if scope.Exists && scope.Name == spec.Name && scope.Exports != nil {
		return r.matcher.PackageExportsResolve(fileurl.PathToFileURL(scope.PjsonPath), spec.Subpath, scope, base, conditions)
	}

	basePath, err := fileurl.ToPath(base)
	if err != nil {
		return nil, err
	}
	dir := basePath
	if !strings.HasSuffix(base.Path, "/") {
		dir = nodepath.Dirname(basePath)
	}
	for {
		pkgDir := nodepath.Join(dir, "node_modules", spec.Name)
		if st, ok := r.fs.Stat(pkgDir); ok && st.IsDir {
			return r.resolveInPackage(pkgDir, spec, base, conditions)
		}
		parent := nodepath.Dirname(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, errs.NewModuleNotFound(spec.Name, baseDisplay, true)
}

func (r *Resolver) resolveInPackage(pkgDir string, spec npm.PackageSpecifier, base *url.URL, conditions exports.Conditions) (*url.URL, error) {
	pjsonPath := pkgDir + "/package.json"
	config, err := r.scopes.Read(pjsonPath, fileurl.Display(base))
	if err != nil {
		return nil, err
	}
	pjsonURL := fileurl.PathToFileURL(pjsonPath)
	if config.Exports != nil {
		return r.matcher.PackageExportsResolve(pjsonURL, spec.Subpath, config, base, conditions)
	}
	if spec.Subpath != "." {
		ref, err := url.Parse(spec.Subpath)
		if err != nil {
			return nil, errs.NewInvalidModuleSpecifier(spec.Name+spec.Subpath[1:], "is not a valid package subpath", fileurl.Display(base))
		}
		return pjsonURL.ResolveReference(ref), nil
	}
	if r.options.LegacyMainFallback {
		return r.legacyMainResolve(pjsonURL, config, base)
	}
	if config.Main != "" {
		ref, err := url.Parse(config.Main)
		if err == nil {
			return pjsonURL.ResolveReference(ref), nil
		}
	}
	return nil, errs.NewModuleNotFound(pkgDir+"/", fileurl.Display(base), true)
}

// legacyMainResolve finds the entry point of a package without "exports"
// by probing "main" with extensions, its index files and finally the
// package's own index files.
func (r *Resolver) legacyMainResolve(pjsonURL *url.URL, config *pkgscope.Config, base *url.URL) (*url.URL, error) {
	var candidates []string
	if config.Main != "" {
		if u := r.tryCandidate(pjsonURL, config.Main); u != nil {
			return u, nil
		}
		for _, suffix := range []string{".js", ".json", ".node", "/index.js", "/index.json", "/index.node"} {
			candidates = append(candidates, "./"+config.Main+suffix)
		}
	}
	candidates = append(candidates, "./index.js", "./index.json", "./index.node")
	for _, c := range candidates {
		if u := r.tryCandidate(pjsonURL, c); u != nil {
			r.deprecateLegacyIndex(u, pjsonURL, base, config.Main)
			return u, nil
		}
	}
	pkgDir := strings.TrimSuffix(fileurl.Display(pjsonURL), "package.json")
	return nil, errs.NewModuleNotFound(pkgDir, fileurl.Display(base), true)
}

func (r *Resolver) tryCandidate(pjsonURL *url.URL, candidate string) *url.URL {
	ref, err := url.Parse(candidate)
	if err != nil {
		return nil
	}
	u := pjsonURL.ResolveReference(ref)
	p, err := fileurl.ToPath(u)
	if err != nil {
		return nil
	}
	if st, ok := r.fs.Stat(p); ok && st.IsFile {
		return u
	}
	return nil
}

func (r *Resolver) deprecateLegacyIndex(u *url.URL, pjsonURL *url.URL, base *url.URL, main string) {
	if f, _, err := format.Probe(u, r.scopes.PackageType); err != nil || f != format.Module {
		return
	}
	urlPath := fileurl.Display(u)
	packagePath := strings.TrimSuffix(fileurl.Display(pjsonURL), "package.json")
	basePath := fileurl.Display(base)
	if main == "" {
		r.warnings.Deprecate("DEP0151", fmt.Sprintf(
			"No \"main\" or \"exports\" field defined in the package.json for %s resolving the main entry point \"%s\", imported from %s.\nDefault \"index\" lookups for the main are deprecated for ES modules.",
			packagePath, strings.TrimPrefix(urlPath, packagePath), basePath,
		))
	} else if nodepath.Resolve(packagePath, main) != urlPath {
		r.warnings.Deprecate("DEP0151", fmt.Sprintf(
			"Package %s has a \"main\" field set to \"%s\", excluding the full filename and extension to the resolved file at \"%s\", imported from %s.\n Automatic extension resolution of the \"main\" field is deprecated for ES modules.",
			packagePath, main, strings.TrimPrefix(urlPath, packagePath), basePath,
		))
	}
}

// finalize checks that a file: URL names an existing file and returns its
// canonical URL. A URL ending in "/" names a directory and is returned as
// it is.
func (r *Resolver) finalize(resolved *url.URL, base *url.URL) (*url.URL, error) {
	baseDisplay := fileurl.Display(base)
	if encodedSeparatorRegexp.MatchString(resolved.EscapedPath()) {
		return nil, errs.NewInvalidModuleSpecifier(resolved.EscapedPath(), `must not include encoded "/" or "\" characters`, baseDisplay)
	}
	if strings.HasSuffix(resolved.Path, "/") {
		return resolved, nil
	}

	filePath, err := fileurl.ToPath(resolved)
	if err != nil {
		return nil, err
	}
	st, ok := r.fs.Stat(filePath)
	if ok && st.IsDir {
		return nil, errs.NewUnsupportedDirImport(filePath, baseDisplay, resolved.String())
	}
	if !ok || !st.IsFile {
		e := errs.NewModuleNotFound(filePath, baseDisplay, false)
		e.URL = resolved.String()
		return nil, e
	}

	real, err := r.fs.Realpath(filePath)
	if err != nil {
		return nil, err
	}
	u := fileurl.PathToFileURL(real)
	u.RawQuery = resolved.RawQuery
	u.ForceQuery = resolved.ForceQuery
	u.Fragment = resolved.Fragment
	u.RawFragment = resolved.RawFragment
	return u, nil
}

var typeScriptExtensions = map[string]string{
	".js":  ".ts",
	".mjs": ".mts",
	".cjs": ".cts",
}

// typeScriptAlternative maps ./a.js imported from a TypeScript file to
// ./a.ts, the file the import refers to before compilation.
func typeScriptAlternative(resolved *url.URL, parent *url.URL) (*url.URL, bool) {
	switch nodepath.Extname(parent.Path) {
	case ".ts", ".mts", ".cts", ".tsx":
	default:
		return nil, false
	}
	ext := nodepath.Extname(resolved.Path)
	alt, ok := typeScriptExtensions[ext]
	if !ok {
		return nil, false
	}
	u := *resolved
	u.Path = strings.TrimSuffix(resolved.Path, ext) + alt
	u.RawPath = ""
	if resolved.RawPath != "" {
		u.RawPath = strings.TrimSuffix(resolved.RawPath, ext) + alt
	}
	return &u, true
}

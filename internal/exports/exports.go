// Package exports matches subpath requests against the "exports" and
// "imports" maps of a package.json.
package exports

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/fileurl"
	"github.com/esm-dev/noderesolve/internal/npm"
	"github.com/esm-dev/noderesolve/internal/pkgscope"
	"github.com/esm-dev/noderesolve/internal/warn"
	"github.com/ije/gox/set"
)

// Conditions is the set of condition names a resolution runs with.
type Conditions = *set.ReadOnlySet[string]

// PackageResolver resolves a bare specifier found as an "imports" target.
type PackageResolver func(specifier string, base *url.URL, conditions Conditions) (*url.URL, error)

// Matcher resolves subpaths through conditional exports and imports maps.
type Matcher struct {
	Scopes   *pkgscope.Reader
	Warnings *warn.Reporter
	// PackageResolve handles imports targets that name another package.
	PackageResolve PackageResolver
}

// NewMatcher returns a matcher reading scopes with r and reporting
// deprecations to w.
func NewMatcher(r *pkgscope.Reader, w *warn.Reporter) *Matcher {
	return &Matcher{Scopes: r, Warnings: w}
}

// NewConditions returns a condition set of names.
func NewConditions(names ...string) Conditions {
	return set.NewReadOnly(names...)
}

// PackageExportsResolve resolves subpath ("." or "./x") through the
// exports of the package whose package.json is at pjsonURL.
func (m *Matcher) PackageExportsResolve(pjsonURL *url.URL, subpath string, config *pkgscope.Config, base *url.URL, conditions Conditions) (*url.URL, error) {
	exports := config.Exports
	sugar, err := isConditionalExportsMainSugar(exports, pjsonURL, base)
	if err != nil {
		return nil, err
	}
	var obj npm.JSONObject
	if sugar {
		obj = npm.NewJSONObject([]string{"."}, map[string]any{".": exports})
	} else if o, ok := exports.(npm.JSONObject); ok {
		obj = o
	}

	notExported := func() error {
		return errs.NewPackagePathNotExported(packagePath(pjsonURL), subpath, fileurl.Display(base))
	}

	if target, ok := obj.Get(subpath); ok && !strings.Contains(subpath, "*") && !strings.HasSuffix(subpath, "/") {
		r, err := m.resolveTarget(&targetContext{
			pjsonURL:   pjsonURL,
			base:       base,
			match:      subpath,
			conditions: conditions,
		}, target)
		if err != nil {
			return nil, err
		}
		if r.kind != resolved {
			return nil, notExported()
		}
		return r.url, nil
	}

	bestMatch, bestMatchSubpath := "", ""
	for _, key := range obj.Keys() {
		patternIndex := strings.IndexByte(key, '*')
		if patternIndex == -1 || !strings.HasPrefix(subpath, key[:patternIndex]) {
			continue
		}
		if strings.HasSuffix(subpath, "/") {
			m.deprecateTrailingSlashPattern(subpath, pjsonURL, base)
		}
		trailer := key[patternIndex+1:]
		if len(subpath) >= len(key) && strings.HasSuffix(subpath, trailer) &&
			patternKeyCompare(bestMatch, key) == 1 && strings.LastIndexByte(key, '*') == patternIndex {
			bestMatch = key
			bestMatchSubpath = subpath[patternIndex : len(subpath)-len(trailer)]
		}
	}

	if bestMatch != "" {
		target, _ := obj.Get(bestMatch)
		r, err := m.resolveTarget(&targetContext{
			pjsonURL:   pjsonURL,
			base:       base,
			subpath:    bestMatchSubpath,
			match:      bestMatch,
			pattern:    true,
			isPathMap:  strings.HasSuffix(subpath, "/"),
			conditions: conditions,
		}, target)
		if err != nil {
			return nil, err
		}
		if r.kind != resolved {
			return nil, notExported()
		}
		return r.url, nil
	}

	return nil, notExported()
}

// PackageImportsResolve resolves a "#" specifier through the imports of
// the package scope containing base.
func (m *Matcher) PackageImportsResolve(name string, base *url.URL, conditions Conditions) (*url.URL, error) {
	if name == "#" || strings.HasPrefix(name, "#/") || strings.HasSuffix(name, "/") {
		return nil, errs.NewInvalidModuleSpecifier(name, "is not a valid internal imports specifier name", fileurl.Display(base))
	}

	config, err := m.Scopes.Scope(base)
	if err != nil {
		return nil, err
	}

	var pkgDir string
	if config.Exists {
		pkgDir = config.Dir()
		pjsonURL := fileurl.PathToFileURL(config.PjsonPath)
		if imports, ok := config.Imports.(npm.JSONObject); ok {
			if target, ok := imports.Get(name); ok && !strings.Contains(name, "*") {
				r, err := m.resolveTarget(&targetContext{
					pjsonURL:   pjsonURL,
					base:       base,
					match:      name,
					internal:   true,
					conditions: conditions,
				}, target)
				if err != nil {
					return nil, err
				}
				if r.kind == resolved {
					return r.url, nil
				}
			} else {
				bestMatch, bestMatchSubpath := "", ""
				for _, key := range imports.Keys() {
					patternIndex := strings.IndexByte(key, '*')
					if patternIndex == -1 || !strings.HasPrefix(name, key[:patternIndex]) {
						continue
					}
					trailer := key[patternIndex+1:]
					if len(name) >= len(key) && strings.HasSuffix(name, trailer) &&
						patternKeyCompare(bestMatch, key) == 1 && strings.LastIndexByte(key, '*') == patternIndex {
						bestMatch = key
						bestMatchSubpath = name[patternIndex : len(name)-len(trailer)]
					}
				}
				if bestMatch != "" {
					target, _ := imports.Get(bestMatch)
					r, err := m.resolveTarget(&targetContext{
						pjsonURL:   pjsonURL,
						base:       base,
						subpath:    bestMatchSubpath,
						match:      bestMatch,
						pattern:    true,
						internal:   true,
						conditions: conditions,
					}, target)
					if err != nil {
						return nil, err
					}
					if r.kind == resolved {
						return r.url, nil
					}
				}
			}
		}
	}

	return nil, errs.NewPackageImportNotDefined(name, pkgDir, fileurl.Display(base))
}

// isConditionalExportsMainSugar reports whether exports is the shorthand
// for {".": exports}: a string, an array, or an object of condition keys.
func isConditionalExportsMainSugar(exports any, pjsonURL *url.URL, base *url.URL) (bool, error) {
	switch v := exports.(type) {
	case string, []any:
		return true, nil
	case npm.JSONObject:
		isConditionalSugar := false
		for i, key := range v.Keys() {
			cur := key == "" || key[0] != '.'
			if i == 0 {
				isConditionalSugar = cur
			} else if isConditionalSugar != cur {
				return false, errs.NewInvalidPackageConfig(
					fileurl.Display(pjsonURL),
					fileurl.Display(base),
					`"exports" cannot contain some keys starting with '.' and some not. The exports object must either be an object of package subpath keys or an object of main entry condition name keys only.`,
				)
			}
		}
		return isConditionalSugar, nil
	}
	return false, nil
}

// patternKeyCompare orders pattern keys by specificity. It returns -1 when
// a is more specific than b, 1 when b is, and 0 when they are the same.
func patternKeyCompare(a string, b string) int {
	aPatternIndex := strings.IndexByte(a, '*')
	bPatternIndex := strings.IndexByte(b, '*')
	baseLengthA := len(a)
	if aPatternIndex != -1 {
		baseLengthA = aPatternIndex + 1
	}
	baseLengthB := len(b)
	if bPatternIndex != -1 {
		baseLengthB = bPatternIndex + 1
	}
	switch {
	case baseLengthA > baseLengthB:
		return -1
	case baseLengthB > baseLengthA:
		return 1
	case aPatternIndex == -1:
		return 1
	case bPatternIndex == -1:
		return -1
	case len(a) > len(b):
		return -1
	case len(b) > len(a):
		return 1
	}
	return 0
}

func (m *Matcher) deprecateTrailingSlashPattern(match string, pjsonURL *url.URL, base *url.URL) {
	importedFrom := ""
	if base != nil {
		importedFrom = " imported from " + fileurl.Display(base)
	}
	m.Warnings.Deprecate("DEP0155", fmt.Sprintf(
		`Use of deprecated trailing slash pattern mapping "%s" in the "exports" field module resolution of the package at %s%s. Mapping specifiers ending in "/" is no longer supported.`,
		match, fileurl.Display(pjsonURL), importedFrom,
	))
}

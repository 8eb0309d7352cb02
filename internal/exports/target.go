package exports

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/fileurl"
	"github.com/esm-dev/noderesolve/internal/npm"
)

var (
	// "", ".", "..", "node_modules" segments, literal or percent-encoded
	invalidSegmentRegexp = regexp.MustCompile(`(?i)(^|\\|/)((\.|%2e)(\.|%2e)?(%2e)?|(n|%6e)(o|%6f)(d|%64)(e|%65)(_|%5f)(m|%6d)(o|%6f)(d|%64)(u|%75)(l|%6c)(e|%65)(s|%73))?(\\|/|$)`)
	// same as above without the empty segment
	deprecatedInvalidSegmentRegexp = regexp.MustCompile(`(?i)(^|\\|/)((\.|%2e)(\.|%2e)?(%2e)?|(n|%6e)(o|%6f)(d|%64)(e|%65)(_|%5f)(m|%6d)(o|%6f)(d|%64)(u|%75)(l|%6c)(e|%65)(s|%73))(\\|/|$)`)

	doubleSlashRegexp = regexp.MustCompile(`[/\\]{2}`)
)

type resultKind int

const (
	// no condition of an object target matched
	unmatched resultKind = iota
	// the target is null, the subpath is explicitly not exported
	excluded
	resolved
)

type result struct {
	kind resultKind
	url  *url.URL
}

// targetContext carries the invariant inputs of one target resolution.
type targetContext struct {
	pjsonURL   *url.URL
	base       *url.URL
	subpath    string
	match      string
	pattern    bool
	internal   bool
	isPathMap  bool
	conditions Conditions
}

func (m *Matcher) invalidTarget(c *targetContext, target any) *errs.Error {
	return errs.NewInvalidPackageTarget(packagePath(c.pjsonURL), c.match, target, c.internal, fileurl.Display(c.base))
}

// resolveTarget walks a target tree: strings are resolved, arrays are
// fallbacks and objects are condition maps.
func (m *Matcher) resolveTarget(c *targetContext, target any) (result, error) {
	switch t := target.(type) {
	case string:
		u, err := m.resolveTargetString(c, t)
		if err != nil {
			return result{}, err
		}
		if u == nil {
			return result{kind: excluded}, nil
		}
		return result{kind: resolved, url: u}, nil

	case []any:
		if len(t) == 0 {
			return result{kind: excluded}, nil
		}
		var lastErr error
		for _, item := range t {
			r, err := m.resolveTarget(c, item)
			if err != nil {
				lastErr = err
				if code, _ := errs.CodeOf(err); code == errs.InvalidPackageTarget {
					continue
				}
				return result{}, err
			}
			switch r.kind {
			case unmatched:
				continue
			case excluded:
				lastErr = nil
				continue
			}
			return r, nil
		}
		if lastErr != nil {
			return result{}, lastErr
		}
		return result{kind: excluded}, nil

	case npm.JSONObject:
		for _, key := range t.Keys() {
			if npm.IsArrayIndex(key) {
				return result{}, errs.NewInvalidPackageConfig(
					fileurl.Display(c.pjsonURL),
					fileurl.Display(c.base),
					`"exports" cannot contain numeric property keys.`,
				)
			}
		}
		for _, key := range t.Keys() {
			if key == "default" || (c.conditions != nil && c.conditions.Has(key)) {
				value, _ := t.Get(key)
				r, err := m.resolveTarget(c, value)
				if err != nil {
					return result{}, err
				}
				if r.kind == unmatched {
					continue
				}
				return r, nil
			}
		}
		return result{kind: unmatched}, nil

	case nil:
		return result{kind: excluded}, nil
	}
	return result{}, m.invalidTarget(c, target)
}

// resolveTargetString resolves a single string target. It returns a nil
// URL when a bare imports target resolves to nothing.
func (m *Matcher) resolveTargetString(c *targetContext, target string) (*url.URL, error) {
	if c.subpath != "" && !c.pattern && !strings.HasSuffix(target, "/") {
		return nil, m.invalidTarget(c, target)
	}

	if !strings.HasPrefix(target, "./") {
		if c.internal && !strings.HasPrefix(target, "../") && !strings.HasPrefix(target, "/") && !fileurl.HasScheme(target) {
			exportTarget := target + c.subpath
			if c.pattern {
				exportTarget = strings.ReplaceAll(target, "*", c.subpath)
			}
			if m.PackageResolve == nil {
				return nil, m.invalidTarget(c, target)
			}
			return m.PackageResolve(exportTarget, c.pjsonURL, c.conditions)
		}
		return nil, m.invalidTarget(c, target)
	}

	if invalidSegmentRegexp.MatchString(target[2:]) {
		if deprecatedInvalidSegmentRegexp.MatchString(target[2:]) {
			return nil, m.invalidTarget(c, target)
		}
		if !c.isPathMap {
			m.deprecateInvalidSegment(c, c.substitute(target), c.match, true)
		}
	}

	ref, err := url.Parse(target)
	if err != nil {
		return nil, m.invalidTarget(c, target)
	}
	resolvedURL := c.pjsonURL.ResolveReference(ref)
	if !strings.HasPrefix(resolvedURL.EscapedPath(), strings.TrimSuffix(c.pjsonURL.EscapedPath(), "package.json")) {
		return nil, m.invalidTarget(c, target)
	}

	if c.subpath == "" {
		return resolvedURL, nil
	}

	if invalidSegmentRegexp.MatchString(c.subpath) {
		request := c.match + c.subpath
		if c.pattern {
			request = strings.Replace(c.match, "*", c.subpath, 1)
		}
		if deprecatedInvalidSegmentRegexp.MatchString(c.subpath) {
			field := "exports"
			if c.internal {
				field = "imports"
			}
			reason := fmt.Sprintf(`request is not a valid match in pattern "%s" for the "%s" resolution of %s`, c.match, field, fileurl.Display(c.pjsonURL))
			return nil, errs.NewInvalidModuleSpecifier(request, reason, fileurl.Display(c.base))
		}
		if !c.isPathMap {
			m.deprecateInvalidSegment(c, c.substitute(target), request, false)
		}
	}

	if c.pattern {
		u, err := url.Parse(strings.ReplaceAll(resolvedURL.String(), "*", c.subpath))
		if err != nil {
			return nil, m.invalidTarget(c, target)
		}
		return u, nil
	}
	ref, err = url.Parse(c.subpath)
	if err != nil {
		return nil, m.invalidTarget(c, target)
	}
	return resolvedURL.ResolveReference(ref), nil
}

// substitute applies the matched subpath to target.
func (c *targetContext) substitute(target string) string {
	if c.pattern {
		return strings.ReplaceAll(target, "*", c.subpath)
	}
	return target + c.subpath
}

func (m *Matcher) deprecateInvalidSegment(c *targetContext, target string, request string, isTarget bool) {
	checked := request
	if isTarget {
		checked = target
	}
	kind := "leading or trailing slash matching"
	if doubleSlashRegexp.MatchString(checked) {
		kind = "double slash"
	}
	matchedTo := ""
	if request != c.match {
		matchedTo = fmt.Sprintf(`matched to "%s" `, c.match)
	}
	field := "exports"
	if c.internal {
		field = "imports"
	}
	importedFrom := ""
	if c.base != nil {
		importedFrom = " imported from " + fileurl.Display(c.base)
	}
	m.Warnings.Deprecate("DEP0166", fmt.Sprintf(
		`Use of deprecated %s resolving "%s" for module request "%s" %sin the "%s" field module resolution of the package at %s%s.`,
		kind, target, request, matchedTo, field, fileurl.Display(c.pjsonURL), importedFrom,
	))
}

// packagePath returns the directory of a package.json URL as a path with
// a trailing slash.
func packagePath(pjsonURL *url.URL) string {
	return strings.TrimSuffix(fileurl.Display(pjsonURL), "package.json")
}

// Package builtin knows the names of the Node.js core modules.
package builtin

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ije/gox/set"
)

// names lists the core modules that may be required without the "node:"
// scheme, including their public subpaths.
var names = []string{
	"assert",
	"assert/strict",
	"async_hooks",
	"buffer",
	"child_process",
	"cluster",
	"console",
	"constants",
	"crypto",
	"dgram",
	"diagnostics_channel",
	"dns",
	"dns/promises",
	"domain",
	"events",
	"fs",
	"fs/promises",
	"http",
	"http2",
	"https",
	"inspector",
	"module",
	"net",
	"os",
	"path",
	"path/posix",
	"path/win32",
	"perf_hooks",
	"process",
	"punycode",
	"querystring",
	"readline",
	"readline/promises",
	"repl",
	"stream",
	"stream/consumers",
	"stream/promises",
	"stream/web",
	"string_decoder",
	"sys",
	"timers",
	"timers/promises",
	"tls",
	"trace_events",
	"tty",
	"url",
	"util",
	"util/types",
	"v8",
	"vm",
	"wasi",
	"worker_threads",
	"zlib",
}

// schemeOnly lists the modules that exist only under the "node:" scheme,
// keyed by the Node.js version constraint that introduced them.
var schemeOnly = map[string]string{
	"test":           ">= 18.0.0",
	"test/reporters": ">= 19.9.0",
	"sea":            ">= 20.12.0",
	"sqlite":         ">= 22.5.0",
}

// Registry is a fixed set of core module names.
type Registry struct {
	names      *set.ReadOnlySet[string]
	schemeOnly *set.ReadOnlySet[string]
}

var defaultRegistry = ForNodeVersion("")

// Default returns the registry of the latest Node.js release.
func Default() *Registry {
	return defaultRegistry
}

// ForNodeVersion returns a registry of the modules available in the given
// Node.js version. An empty or invalid version selects every known module.
func ForNodeVersion(version string) *Registry {
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		v = nil
	}
	only := make([]string, 0, len(schemeOnly))
	for name, constraint := range schemeOnly {
		if v != nil {
			c, err := semver.NewConstraint(constraint)
			if err == nil && !c.Check(v) {
				continue
			}
		}
		only = append(only, name)
	}
	return &Registry{
		names:      set.NewReadOnly(names...),
		schemeOnly: set.NewReadOnly(only...),
	}
}

// Has reports whether name, without a "node:" scheme, is a core module
// that can be required by its bare name.
func (r *Registry) Has(name string) bool {
	return r.names.Has(name)
}

// HasScheme reports whether "node:" + name is a core module.
func (r *Registry) HasScheme(name string) bool {
	return r.names.Has(name) || r.schemeOnly.Has(name)
}

// IsBuiltin reports whether specifier names a core module, either by a
// "node:" scheme or by a bare name.
func (r *Registry) IsBuiltin(specifier string) bool {
	if name, ok := strings.CutPrefix(specifier, "node:"); ok {
		return r.HasScheme(name)
	}
	return r.Has(specifier)
}

// MatchesFirstSegment reports whether the leading package segment of a
// bare specifier ("fs" of "fs/x", "@a/b" of "@a/b/c") is a core module.
func (r *Registry) MatchesFirstSegment(specifier string) bool {
	if specifier == "" {
		return false
	}
	seg := specifier
	if specifier[0] == '@' {
		i := strings.IndexByte(specifier, '/')
		if i < 0 {
			return r.Has(specifier)
		}
		if j := strings.IndexByte(specifier[i+1:], '/'); j >= 0 {
			seg = specifier[:i+1+j]
		}
	} else if i := strings.IndexByte(specifier, '/'); i >= 0 {
		seg = specifier[:i]
	}
	return r.Has(seg)
}

// Names returns the bare core module names.
func (r *Registry) Names() []string {
	return r.names.Values()
}

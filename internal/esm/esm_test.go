package esm

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/exports"
	"github.com/esm-dev/noderesolve/internal/fsys"
	"github.com/esm-dev/noderesolve/internal/pkgscope"
	"github.com/esm-dev/noderesolve/internal/warn"
)

var testFiles = map[string]string{
	"/app/package.json":                     `{"name": "app", "type": "module", "exports": {".": "./main.js", "./util": "./lib/util.js"}, "imports": {"#a": "./a.js", "#dep": "dep", "#net": "net"}}`,
	"/app/main.js":                          "",
	"/app/a.js":                             "",
	"/app/lib/util.js":                      "",
	"/app/dir/index.js":                     "",
	"/app/src/x.js":                         "",
	"/app/src/t.ts":                         "",
	"/app/src/y.ts":                         "",
	"/app/src/m.mts":                        "",
	"/app/node_modules/p/package.json":      `{"name": "p", "exports": {".": "./b.js", "./lib/*": "./src/*.js"}}`,
	"/app/node_modules/p/b.js":              "",
	"/app/node_modules/p/src/c.js":          "",
	"/app/node_modules/empty/package.json":  `{"exports": {}}`,
	"/app/node_modules/dep/package.json":    `{"exports": "./d.js"}`,
	"/app/node_modules/dep/d.js":            "",
	"/app/node_modules/plain/package.json":  `{"main": "./lib/a.js"}`,
	"/app/node_modules/plain/lib/a.js":      "",
	"/app/node_modules/plain/index.js":      "",
	"/app/node_modules/plain/x.js":          "",
	"/app/node_modules/legacy/package.json": `{"main": "lib", "type": "module"}`,
	"/app/node_modules/legacy/lib/index.js": "",
	"/app/node_modules/bare/index.js":       "",
	"/app/node_modules/@s/q/package.json":   `{"exports": {"./x": {"import": "./x.mjs", "require": "./x.cjs"}}}`,
	"/app/node_modules/@s/q/x.mjs":          "",
	"/app/node_modules/@s/q/x.cjs":          "",
	"/store/real/index.js":                  "",
	"/loose/main.js":                        "",
	"/loose/x.js":                           "",
}

func newResolver(options Options) (*Resolver, *warn.Recorder) {
	fs := &fsys.MapFS{Files: testFiles, Links: map[string]string{"/app/node_modules/linked": "/store/real"}}
	rec := &warn.Recorder{}
	w := warn.NewReporter(rec)
	scopes := pkgscope.NewReader(fs, nil)
	return New(fs, scopes, exports.NewMatcher(scopes, w), nil, w, options), rec
}

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestResolve(t *testing.T) {
	r, _ := newResolver(Options{})
	conditions := exports.NewConditions("node", "import")

	tests := []struct {
		specifier string
		parent    string
		want      string
		code      errs.Code
	}{
		{"./a.js", "file:///app/main.js", "file:///app/a.js", ""},
		{"/app/a.js", "file:///loose/main.js", "file:///app/a.js", ""},
		{"./x.js", "file:///loose/main.js", "file:///loose/x.js", ""},
		{"./a.js?1", "file:///app/main.js", "file:///app/a.js?1", ""},
		{"./a.js#1", "file:///app/main.js", "file:///app/a.js#1", ""},
		{"./a", "file:///app/main.js", "", errs.ModuleNotFound},
		{"./dir", "file:///app/main.js", "", errs.UnsupportedDirImport},
		{"./dir/", "file:///app/main.js", "file:///app/dir/", ""},
		{"..", "file:///app/src/x.js", "file:///app/", ""},
		{".", "file:///app/src/x.js", "file:///app/src/", ""},
		{"./%2F.js", "file:///app/main.js", "", errs.InvalidModuleSpecifier},
		{"./%5c.js", "file:///app/main.js", "", errs.InvalidModuleSpecifier},
		{"", "file:///app/main.js", "", errs.ModuleNotFound},
		{"abc", "file:///app/main.js", "", errs.ModuleNotFound},
		{"@scope-only", "file:///app/main.js", "", errs.InvalidModuleSpecifier},
		{"%20", "file:///app/main.js", "", errs.InvalidModuleSpecifier},
		{"data:1", "file:///app/main.js", "data:1", ""},
		{"xss:1", "file:///app/main.js", "xss:1", ""},
		{"node:fs", "file:///app/main.js", "node:fs", ""},
		{"fs", "file:///app/main.js", "node:fs", ""},
		{"fs/promises", "file:///app/main.js", "node:fs/promises", ""},
		{"fs", "data:text/javascript,x", "node:fs", ""},
		{"./example.js", "data:1", "", errs.UnsupportedResolveRequest},
		{"abc", "data:1", "", errs.UnsupportedResolveRequest},
		{"./b.js", "https://example.com/a/index.js", "https://example.com/a/b.js", ""},
		{"/b.js", "https://example.com/a/index.js", "https://example.com/b.js", ""},
		{"node:fs", "https://example.com/file.html", "", errs.NetworkImportDisallowed},
		{"fs", "https://example.com/file.html", "", errs.NetworkImportDisallowed},
		{"p", "https://example.com/file.html", "", errs.NetworkImportDisallowed},
		{"p", "file:///app/main.js", "file:///app/node_modules/p/b.js", ""},
		{"p/lib/c", "file:///app/src/x.js", "file:///app/node_modules/p/src/c.js", ""},
		{"p/lib/missing", "file:///app/main.js", "", errs.ModuleNotFound},
		{"p/other", "file:///app/main.js", "", errs.PackagePathNotExported},
		{"empty", "file:///app/main.js", "", errs.PackagePathNotExported},
		{"empty/x", "file:///app/main.js", "", errs.PackagePathNotExported},
		{"@s/q/x", "file:///app/main.js", "file:///app/node_modules/@s/q/x.mjs", ""},
		{"app", "file:///app/src/x.js", "file:///app/main.js", ""},
		{"app/util", "file:///app/src/x.js", "file:///app/lib/util.js", ""},
		{"#a", "file:///app/src/x.js", "file:///app/a.js", ""},
		{"#dep", "file:///app/src/x.js", "file:///app/node_modules/dep/d.js", ""},
		{"#net", "file:///app/src/x.js", "node:net", ""},
		{"#missing", "file:///app/src/x.js", "", errs.PackageImportNotDefined},
		{"#", "file:///app/src/x.js", "", errs.InvalidModuleSpecifier},
		{"#/", "file:///app/src/x.js", "", errs.InvalidModuleSpecifier},
		{"plain", "file:///app/main.js", "file:///app/node_modules/plain/lib/a.js", ""},
		{"plain/x.js", "file:///app/main.js", "file:///app/node_modules/plain/x.js", ""},
		{"plain/x", "file:///app/main.js", "", errs.ModuleNotFound},
		{"legacy", "file:///app/main.js", "", errs.UnsupportedDirImport},
		{"bare", "file:///app/main.js", "", errs.ModuleNotFound},
		{"linked/index.js", "file:///app/main.js", "file:///store/real/index.js", ""},
		{"./y.js", "file:///app/src/t.ts", "", errs.ModuleNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.specifier+" from "+tt.parent, func(t *testing.T) {
			u, err := r.Resolve(tt.specifier, mustParse(t, tt.parent), conditions)
			if tt.code != "" {
				if code, _ := errs.CodeOf(err); code != tt.code {
					t.Fatalf("expected %s, got %v (url %v)", tt.code, err, u)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if u.String() != tt.want {
				t.Fatalf("got %s, want %s", u, tt.want)
			}
		})
	}
}

func TestErrorURL(t *testing.T) {
	r, _ := newResolver(Options{})
	parent := mustParse(t, "file:///app/main.js")

	_, err := r.Resolve("./dir", parent, nil)
	var e *errs.Error
	if !errors.As(err, &e) || e.URL != "file:///app/dir" {
		t.Fatalf("expected a directory import error with url, got %#v", err)
	}
	if e.Message != "Directory import '/app/dir' is not supported resolving ES modules imported from /app/main.js" {
		t.Fatalf("unexpected message %q", e.Message)
	}

	_, err = r.Resolve("./missing.js", parent, nil)
	if !errors.As(err, &e) || e.URL != "file:///app/missing.js" {
		t.Fatalf("expected a not found error with url, got %#v", err)
	}

	_, err = r.Resolve("abc", parent, nil)
	if err == nil || err.Error() != "Cannot find package 'abc' imported from /app/main.js" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLegacyMainFallback(t *testing.T) {
	r, rec := newResolver(Options{LegacyMainFallback: true})
	parent := mustParse(t, "file:///app/main.js")
	for i := 0; i < 2; i++ {
		u, err := r.Resolve("legacy", parent, nil)
		if err != nil {
			t.Fatal(err)
		}
		if u.String() != "file:///app/node_modules/legacy/lib/index.js" {
			t.Fatalf("unexpected url %s", u)
		}
	}
	if n := rec.Count("DEP0151"); n != 1 {
		t.Fatalf("DEP0151 emitted %d times, want 1", n)
	}
	if !strings.Contains(rec.Warnings[0].Message, `has a "main" field set to "lib"`) {
		t.Fatalf("unexpected message %q", rec.Warnings[0].Message)
	}

	// commonjs index lookups are not deprecated
	u, err := r.Resolve("bare", parent, nil)
	if err != nil {
		t.Fatal(err)
	}
	if u.String() != "file:///app/node_modules/bare/index.js" {
		t.Fatalf("unexpected url %s", u)
	}
	if n := len(rec.Warnings); n != 1 {
		t.Fatalf("expected no new warning, got %d", n)
	}

	u, err = r.Resolve("plain", parent, nil)
	if err != nil || u.String() != "file:///app/node_modules/plain/lib/a.js" {
		t.Fatalf("plain: %v %v", u, err)
	}
}

func TestRewriteTypeScript(t *testing.T) {
	r, _ := newResolver(Options{RewriteTypeScript: true})
	tests := []struct {
		specifier string
		parent    string
		want      string
		code      errs.Code
	}{
		{"./y.js", "file:///app/src/t.ts", "file:///app/src/y.ts", ""},
		{"./m.mjs", "file:///app/src/t.ts", "file:///app/src/m.mts", ""},
		{"./x.js", "file:///app/src/t.ts", "file:///app/src/x.js", ""},
		{"./y.js", "file:///app/src/x.js", "", errs.ModuleNotFound},
		{"./none.js", "file:///app/src/t.ts", "", errs.ModuleNotFound},
	}
	for _, tt := range tests {
		u, err := r.Resolve(tt.specifier, mustParse(t, tt.parent), nil)
		if tt.code != "" {
			if code, _ := errs.CodeOf(err); code != tt.code {
				t.Errorf("%s from %s: expected %s, got %v", tt.specifier, tt.parent, tt.code, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s from %s: %v", tt.specifier, tt.parent, err)
			continue
		}
		if u.String() != tt.want {
			t.Errorf("%s from %s: got %s, want %s", tt.specifier, tt.parent, u, tt.want)
		}
	}
}

func TestSelfImport(t *testing.T) {
	r, _ := newResolver(Options{})
	parent := mustParse(t, "file:///app/src/x.js")
	byName, err := r.Resolve("app/util", parent, nil)
	if err != nil {
		t.Fatal(err)
	}
	byPath, err := r.Resolve("../lib/util.js", parent, nil)
	if err != nil {
		t.Fatal(err)
	}
	if byName.String() != byPath.String() {
		t.Fatalf("self import %s != %s", byName, byPath)
	}
}

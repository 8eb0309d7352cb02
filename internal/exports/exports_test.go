package exports

import (
	"errors"
	"net/url"
	"testing"

	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/fileurl"
	"github.com/esm-dev/noderesolve/internal/fsys"
	"github.com/esm-dev/noderesolve/internal/npm"
	"github.com/esm-dev/noderesolve/internal/pkgscope"
	"github.com/esm-dev/noderesolve/internal/warn"
)

const pjsonPath = "/node_modules/p/package.json"

func parseExports(t *testing.T, exports string) *pkgscope.Config {
	t.Helper()
	p, err := npm.ParsePackageJSON([]byte(`{"name":"p","exports":` + exports + `}`))
	if err != nil {
		t.Fatal(err)
	}
	return &pkgscope.Config{Exists: true, PjsonPath: pjsonPath, Name: p.Name, Exports: p.Exports, Type: pkgscope.TypeNone}
}

func newMatcher() (*Matcher, *warn.Recorder) {
	rec := &warn.Recorder{}
	m := NewMatcher(pkgscope.NewReader(&fsys.MapFS{}, nil), warn.NewReporter(rec))
	return m, rec
}

func TestPackageExportsResolve(t *testing.T) {
	tests := []struct {
		name       string
		exports    string
		subpath    string
		conditions []string
		want       string
		code       errs.Code
	}{
		{"main", `{".": "./b.js"}`, ".", nil, "/node_modules/p/b.js", ""},
		{"string sugar", `"./b.js"`, ".", nil, "/node_modules/p/b.js", ""},
		{"condition sugar", `{"import": "./i.mjs", "default": "./d.js"}`, ".", []string{"import"}, "/node_modules/p/i.mjs", ""},
		{"pattern", `{"./lib/*": "./src/*.js"}`, "./lib/c", nil, "/node_modules/p/src/c.js", ""},
		{"pattern nested", `{"./lib/*": "./src/*.js"}`, "./lib/a/b", nil, "/node_modules/p/src/a/b.js", ""},
		{"pattern with trailer", `{"./*.js": "./dist/*.js"}`, "./a/b.js", nil, "/node_modules/p/dist/a/b.js", ""},
		{"pattern repeated in target", `{"./*": "./*/*.js"}`, "./x", nil, "/node_modules/p/x/x.js", ""},
		{"longest prefix wins", `{"./*": "./any/*.js", "./lib/*": "./lib/*.js"}`, "./lib/a", nil, "/node_modules/p/lib/a.js", ""},
		{"exact beats pattern", `{"./lib/*": "./src/*.js", "./lib/a": "./a.js"}`, "./lib/a", nil, "/node_modules/p/a.js", ""},
		{"declared order", `{"import": "./i.js", "require": "./r.js", "default": "./d.js"}`, ".", []string{"require", "import"}, "/node_modules/p/i.js", ""},
		{"default", `{"import": "./i.js", "default": "./d.js"}`, ".", []string{"require"}, "/node_modules/p/d.js", ""},
		{"nested unmatched continues", `{"node": {"import": "./ni.js"}, "default": "./d.js"}`, ".", []string{"node", "require"}, "/node_modules/p/d.js", ""},
		{"null stops", `{"node": null, "default": "./d.js"}`, ".", []string{"node"}, "", errs.PackagePathNotExported},
		{"no matching condition", `{"import": "./i.js"}`, ".", []string{"require"}, "", errs.PackagePathNotExported},
		{"empty", `{}`, ".", nil, "", errs.PackagePathNotExported},
		{"empty subpath", `{}`, "./x", nil, "", errs.PackagePathNotExported},
		{"missing subpath", `{".": "./b.js"}`, "./missing", nil, "", errs.PackagePathNotExported},
		{"array fallback", `["bad", "./ok.js"]`, ".", nil, "/node_modules/p/ok.js", ""},
		{"array unmatched entries", `[{"worker": "./w.js"}, "./ok.js"]`, ".", nil, "/node_modules/p/ok.js", ""},
		{"array of invalid", `["bad"]`, ".", nil, "", errs.InvalidPackageTarget},
		{"array of null", `[null]`, ".", nil, "", errs.PackagePathNotExported},
		{"array invalid then null", `["bad", null]`, ".", nil, "", errs.PackagePathNotExported},
		{"empty array", `[]`, ".", nil, "", errs.PackagePathNotExported},
		{"mixed keys", `{".": "./a.js", "import": "./b.js"}`, ".", nil, "", errs.InvalidPackageConfig},
		{"numeric keys", `{".": {"0": "./a.js"}}`, ".", nil, "", errs.InvalidPackageConfig},
		{"escape", `{".": "../a.js"}`, ".", nil, "", errs.InvalidPackageTarget},
		{"absolute", `{".": "/a.js"}`, ".", nil, "", errs.InvalidPackageTarget},
		{"bare", `{".": "lodash"}`, ".", nil, "", errs.InvalidPackageTarget},
		{"node_modules segment", `{".": "./node_modules/x/a.js"}`, ".", nil, "", errs.InvalidPackageTarget},
		{"encoded dot segment", `{".": "./a/%2e%2E/%2e%2e/x.js"}`, ".", nil, "", errs.InvalidPackageTarget},
		{"dot dot segment", `{".": "./a/../../x.js"}`, ".", nil, "", errs.InvalidPackageTarget},
		{"number target", `{".": 1}`, ".", nil, "", errs.InvalidPackageTarget},
		{"invalid subpath", `{"./lib/*": "./src/*"}`, "./lib/../x.js", nil, "", errs.InvalidModuleSpecifier},
		{"node_modules subpath", `{"./lib/*": "./src/*"}`, "./lib/node_modules/x.js", nil, "", errs.InvalidModuleSpecifier},
		{"multiple stars in key", `{"./a/*/*": "./x/*.js"}`, "./a/b/c", nil, "", errs.PackagePathNotExported},
	}

	pjsonURL := fileurl.PathToFileURL(pjsonPath)
	base := fileurl.PathToFileURL("/index.js")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newMatcher()
			u, err := m.PackageExportsResolve(pjsonURL, tt.subpath, parseExports(t, tt.exports), base, NewConditions(tt.conditions...))
			if tt.code != "" {
				if code, _ := errs.CodeOf(err); code != tt.code {
					t.Fatalf("expected %s, got %v (url %v)", tt.code, err, u)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := fileurl.Display(u); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDeprecatedSegments(t *testing.T) {
	m, rec := newMatcher()
	pjsonURL := fileurl.PathToFileURL(pjsonPath)
	config := parseExports(t, `{"./index.js": "./lib//index.js", "./features/*": "./src/features/*"}`)

	var first *url.URL
	for i := 0; i < 2; i++ {
		u, err := m.PackageExportsResolve(pjsonURL, "./index.js", config, nil, NewConditions())
		if err != nil {
			t.Fatal(err)
		}
		if first == nil {
			first = u
		} else if u.String() != first.String() {
			t.Fatalf("resolution is not stable: %s != %s", u, first)
		}
	}
	if first.EscapedPath() != "/node_modules/p/lib//index.js" {
		t.Fatalf("unexpected url %s", first)
	}
	if n := rec.Count("DEP0166"); n != 1 {
		t.Fatalf("DEP0166 emitted %d times, want 1", n)
	}

	for i := 0; i < 2; i++ {
		if _, err := m.PackageExportsResolve(pjsonURL, "./features/x/", config, nil, NewConditions()); err != nil {
			t.Fatal(err)
		}
	}
	if n := rec.Count("DEP0155"); n != 1 {
		t.Fatalf("DEP0155 emitted %d times, want 1", n)
	}
	if n := rec.Count("DEP0166"); n != 1 {
		t.Fatalf("path maps should not report DEP0166, got %d", n)
	}
}

func TestPackageImportsResolve(t *testing.T) {
	fs := &fsys.MapFS{Files: map[string]string{
		"/app/package.json": `{
			"name": "app",
			"imports": {
				"#a": "./a.js",
				"#cond": {"node": "./node.js", "default": "./browser.js"},
				"#ext/*": "./ext/*.js",
				"#dep": "dep/sub",
				"#builtin": "net",
				"#url": "https://example.com/a.js",
				"#escape": "../a.js",
				"#null": null
			}
		}`,
		"/app/src/main.js": "",
		"/other/main.js":   "",
	}}
	m := NewMatcher(pkgscope.NewReader(fs, nil), warn.NewReporter(nil))
	m.PackageResolve = func(specifier string, base *url.URL, conditions Conditions) (*url.URL, error) {
		if specifier == "net" {
			return url.Parse("node:net")
		}
		return url.Parse("file:///app/node_modules/" + specifier + ".js")
	}

	base := fileurl.PathToFileURL("/app/src/main.js")
	tests := []struct {
		name       string
		conditions []string
		want       string
		code       errs.Code
	}{
		{"#a", nil, "file:///app/a.js", ""},
		{"#cond", []string{"node"}, "file:///app/node.js", ""},
		{"#cond", nil, "file:///app/browser.js", ""},
		{"#ext/x/y", nil, "file:///app/ext/x/y.js", ""},
		{"#dep", nil, "file:///app/node_modules/dep/sub.js", ""},
		{"#builtin", nil, "node:net", ""},
		{"#url", nil, "", errs.InvalidPackageTarget},
		{"#escape", nil, "", errs.InvalidPackageTarget},
		{"#null", nil, "", errs.PackageImportNotDefined},
		{"#missing", nil, "", errs.PackageImportNotDefined},
		{"#", nil, "", errs.InvalidModuleSpecifier},
		{"#/a", nil, "", errs.InvalidModuleSpecifier},
		{"#a/", nil, "", errs.InvalidModuleSpecifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := m.PackageImportsResolve(tt.name, base, NewConditions(tt.conditions...))
			if tt.code != "" {
				if code, _ := errs.CodeOf(err); code != tt.code {
					t.Fatalf("expected %s, got %v", tt.code, err)
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

	_, err := m.PackageImportsResolve("#a", fileurl.PathToFileURL("/other/main.js"), NewConditions())
	if !errors.Is(err, errs.ErrPackageImportNotDefined) {
		t.Fatalf("expected import not defined without a scope, got %v", err)
	}
}

func TestPatternKeyCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "./*", 1},
		{"./lib/*", "./*", -1},
		{"./*", "./lib/*", 1},
		{"./a*", "./a", -1},
		{"./a", "./a*", 1},
		{"./a*.js", "./a*", -1},
		{"./a*", "./a*", 0},
	}
	for _, tt := range tests {
		if got := patternKeyCompare(tt.a, tt.b); got != tt.want {
			t.Errorf("patternKeyCompare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

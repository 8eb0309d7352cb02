package format

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/fsys"
	"github.com/esm-dev/noderesolve/internal/pkgscope"
)

func TestClassify(t *testing.T) {
	scopes := pkgscope.NewReader(&fsys.MapFS{Files: map[string]string{
		"/esm/package.json": `{"type": "module"}`,
		"/cjs/package.json": `{"type": "commonjs"}`,
	}}, nil)
	lookup := scopes.PackageType

	tests := []struct {
		url  string
		want Format
	}{
		{"node:fs", Builtin},
		{"data:text/javascript,console.log(1)", Module},
		{"data:application/javascript;base64,Y29uc29sZS5sb2coMSk=", Module},
		{"data:application/json,{}", JSON},
		{"data:text/plain,hi", None},
		{"data:1", None},
		{"https://example.com/a.js", None},
		{"xss:1", None},
		{"file:///none/a.cjs", CommonJS},
		{"file:///none/a.mjs", Module},
		{"file:///none/a.json", JSON},
		{"file:///none/addon.node", None},
		{"file:///none/a.mts", TypeScriptModule},
		{"file:///none/a.cts", TypeScriptCommonJS},
		{"file:///none/a.js", CommonJS},
		{"file:///none/a.ts", TypeScriptCommonJS},
		{"file:///none/bin", CommonJS},
		{"file:///esm/a.js", Module},
		{"file:///esm/a.ts", TypeScriptModule},
		{"file:///esm/bin", Module},
		{"file:///esm/a.cjs", CommonJS},
		{"file:///cjs/a.js", CommonJS},
		{"file:///cjs/bin", CommonJS},
		{"file:///esm/.eslintrc", Module},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Classify(u, lookup)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnknownExtension(t *testing.T) {
	u, _ := url.Parse("file:///esm/style.css")
	_, err := Classify(u, nil)
	if !errors.Is(err, errs.ErrUnknownFileExtension) {
		t.Fatalf("expected unknown extension, got %v", err)
	}
	if !strings.Contains(err.Error(), `".css"`) || !strings.Contains(err.Error(), "/esm/style.css") {
		t.Fatalf("unexpected message %q", err)
	}

	if f, ok, err := Probe(u, nil); ok || f != None || err != nil {
		t.Fatalf("Probe = %q, %v, %v", f, ok, err)
	}
	u, _ = url.Parse("file:///esm/a.mjs")
	if f, ok, err := Probe(u, nil); !ok || f != Module || err != nil {
		t.Fatalf("Probe = %q, %v, %v", f, ok, err)
	}
}

func TestInvalidPackageConfig(t *testing.T) {
	scopes := pkgscope.NewReader(&fsys.MapFS{Files: map[string]string{
		"/app/package.json": `{"type": "module",`,
	}}, nil)
	for _, s := range []string{"file:///app/x.js", "file:///app/x.ts", "file:///app/bin"} {
		u, _ := url.Parse(s)
		if f, err := Classify(u, scopes.PackageType); !errors.Is(err, errs.ErrInvalidPackageConfig) {
			t.Fatalf("Classify(%s) = %q, %v", s, f, err)
		}
		if _, ok, err := Probe(u, scopes.PackageType); ok || !errors.Is(err, errs.ErrInvalidPackageConfig) {
			t.Fatalf("Probe(%s) = %v, %v", s, ok, err)
		}
	}
	u, _ := url.Parse("file:///app/x.cjs")
	if f, err := Classify(u, scopes.PackageType); err != nil || f != CommonJS {
		t.Fatalf("Classify(x.cjs) = %q, %v", f, err)
	}
}

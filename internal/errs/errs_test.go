package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{NewModuleNotFound("/app/a.js", "/app/main.js", false), "Cannot find module '/app/a.js' imported from /app/main.js"},
		{NewModuleNotFound("abc", "", true), "Cannot find package 'abc'"},
		{NewPackagePathNotExported("/app/node_modules/p/", ".", "/app/main.js"), `No "exports" main defined in /app/node_modules/p/package.json imported from /app/main.js`},
		{NewPackagePathNotExported("/p/", "./x", ""), `Package subpath './x' is not defined by "exports" in /p/package.json`},
		{NewPackageImportNotDefined("#a", "/app/", "/app/main.js"), `Package import specifier "#a" is not defined in package /app/package.json imported from /app/main.js`},
		{NewInvalidPackageTarget("/p/", ".", "lib/a.js", false, ""), `Invalid "exports" main target "lib/a.js" defined in the package config /p/package.json; targets must start with "./"`},
		{NewUnknownFileExtension(".css", "/a.css"), `Unknown file extension ".css" for /a.css`},
		{NewInvalidArgValue("parentURL", "x", "must be an absolute URL"), "The argument 'parentURL' must be an absolute URL. Received 'x'"},
	}
	for _, tt := range tests {
		if tt.err.Error() != tt.want {
			t.Errorf("got %q, want %q", tt.err.Error(), tt.want)
		}
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("loading: %w", NewModuleNotFound("a", "", false))
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatal("expected a wrapped module not found error")
	}
	if errors.Is(err, ErrUnsupportedDirImport) {
		t.Fatal("codes must differ")
	}
	if code, ok := CodeOf(err); !ok || code != ModuleNotFound {
		t.Fatalf("got %q %v", code, ok)
	}
	if _, ok := CodeOf(errors.New("plain")); ok {
		t.Fatal("plain errors have no code")
	}
}

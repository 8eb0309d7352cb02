package nodepath

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		paths []string
		want  string
	}{
		{[]string{".", "a", "", "a/..", "b/./"}, "/a/b"},
		{[]string{"/foo/bar", "./baz"}, "/foo/bar/baz"},
		{[]string{"/foo/bar", "/tmp/file/"}, "/tmp/file"},
		{[]string{"wwwroot", "static_files/png/", "../gif/image.gif"}, "/wwwroot/static_files/gif/image.gif"},
		{[]string{"/", ".."}, "/"},
		{[]string{}, "/"},
		{[]string{"/a/b", "../../../c"}, "/c"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.paths...); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.paths, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":                    ".",
		"/foo/bar//baz/asdf/": "/foo/bar/baz/asdf/",
		"/foo/bar/../baz":     "/foo/baz",
		"./":                  "./",
		"..":                  "..",
		"../a/../..":          "../..",
		"a/./b":               "a/b",
		"/..":                 "/",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDirnameBasename(t *testing.T) {
	tests := []struct {
		path string
		dir  string
		base string
	}{
		{"/foo/bar/baz/asdf/quux", "/foo/bar/baz/asdf", "quux"},
		{"/foo/bar/", "/foo", "bar"},
		{"/a", "/", "a"},
		{"a", ".", "a"},
		{"/", "/", ""},
		{"", ".", ""},
	}
	for _, tt := range tests {
		if got := Dirname(tt.path); got != tt.dir {
			t.Errorf("Dirname(%q) = %q, want %q", tt.path, got, tt.dir)
		}
		if got := Basename(tt.path); got != tt.base {
			t.Errorf("Basename(%q) = %q, want %q", tt.path, got, tt.base)
		}
	}
	if got := Basename("/x/index.html", ".html"); got != "index" {
		t.Fatalf("Basename with ext = %q", got)
	}
}

func TestExtname(t *testing.T) {
	tests := map[string]string{
		"index.html":      ".html",
		"index.coffee.md": ".md",
		"index.":          ".",
		"index":           "",
		".index":          "",
		".index.md":       ".md",
		"..":              "",
		"/a/b.c/d":        "",
		"/a/b/c.mjs/":     ".mjs",
		"file.d.ts":       ".ts",
	}
	for in, want := range tests {
		if got := Extname(in); got != want {
			t.Errorf("Extname(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("/foo", "bar", "baz/asdf", "quux", ".."); got != "/foo/bar/baz/asdf" {
		t.Fatalf("Join = %q", got)
	}
	if got := Join("", ""); got != "." {
		t.Fatalf("Join empty = %q", got)
	}
}

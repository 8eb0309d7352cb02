// Package fixture writes file trees for tests.
package fixture

import (
	"os"
	"path/filepath"
	"testing"
)

// Files maps slash-separated paths, relative to the fixture root, to file
// contents. A path ending in "/" creates an empty directory.
type Files map[string]string

// Write creates files under a fresh temporary directory and returns the
// directory's canonical path.
func Write(t testing.TB, files Files) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		filename := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			if err := os.MkdirAll(filename, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// Symlink creates a link at name pointing to target, both relative to root.
func Symlink(t testing.TB, root string, target string, name string) {
	t.Helper()
	filename := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, filepath.FromSlash(target)), filename); err != nil {
		t.Fatal(err)
	}
}

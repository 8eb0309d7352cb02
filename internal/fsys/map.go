package fsys

import (
	"strings"

	"github.com/esm-dev/noderesolve/internal/nodepath"
)

// MapFS is an in-memory filesystem keyed by absolute path. Directories are
// implied by the files beneath them. Links maps a path to the path it
// resolves to.
type MapFS struct {
	Files map[string]string
	Links map[string]string
}

func (m *MapFS) resolveLinks(path string) string {
	if len(m.Links) == 0 {
		return path
	}
	// follow links until the path is stable
	for i := 0; i < 32; i++ {
		changed := false
		for from, to := range m.Links {
			if path == from {
				path = to
				changed = true
			} else if strings.HasPrefix(path, from+"/") {
				path = to + path[len(from):]
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return path
}

func (m *MapFS) Stat(path string) (Stat, bool) {
	path = m.resolveLinks(nodepath.Normalize(path))
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := m.Files[path]; ok {
		return Stat{IsFile: true}, true
	}
	prefix := path
	if prefix != "/" {
		prefix += "/"
	}
	for name := range m.Files {
		if strings.HasPrefix(name, prefix) {
			return Stat{IsDir: true}, true
		}
	}
	return Stat{}, false
}

func (m *MapFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.Files[m.resolveLinks(nodepath.Normalize(path))]
	if !ok {
		return nil, ErrNotExist
	}
	return []byte(data), nil
}

func (m *MapFS) Realpath(path string) (string, error) {
	if _, ok := m.Stat(path); !ok {
		return "", ErrNotExist
	}
	return m.resolveLinks(nodepath.Normalize(path)), nil
}

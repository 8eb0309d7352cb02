// Package fsys defines the filesystem primitives consumed by the resolver.
//
// Paths are always absolute POSIX paths. Absence is a normal result:
// Stat reports it with ok=false and ReadFile with an error matching
// fs.ErrNotExist.
package fsys

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Stat is the subset of file information the resolver looks at.
type Stat struct {
	IsFile bool
	IsDir  bool
}

// FS is a read-only filesystem.
type FS interface {
	Stat(path string) (Stat, bool)
	ReadFile(path string) ([]byte, error)
	Realpath(path string) (string, error)
}

// ErrNotExist is returned for missing files.
var ErrNotExist = fs.ErrNotExist

// OS returns the host filesystem.
func OS() FS {
	return osFS{}
}

type osFS struct{}

func (osFS) Stat(path string) (Stat, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		return Stat{}, false
	}
	return Stat{IsFile: fi.Mode().IsRegular(), IsDir: fi.IsDir()}, true
}

func (osFS) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil && isNotExist(err) {
		return nil, ErrNotExist
	}
	return data, err
}

func (osFS) Realpath(path string) (string, error) {
	p, err := filepath.EvalSymlinks(path)
	if err != nil {
		if isNotExist(err) {
			return "", ErrNotExist
		}
		return "", err
	}
	return filepath.ToSlash(p), nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || strings.HasSuffix(err.Error(), "not a directory")
}

// Dir returns a filesystem that maps absolute resolver paths onto the host
// directory root, so "/node_modules/x" reads root/node_modules/x.
func Dir(root string) (FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("not a directory: " + root)
	}
	return &dirFS{root: abs}, nil
}

type dirFS struct {
	root string
}

// safeJoinPath joins and validates that the resulting path is within root
func (d *dirFS) safeJoinPath(name string) (string, bool) {
	filename := filepath.Join(d.root, filepath.FromSlash(name))
	if filename != d.root && !strings.HasPrefix(filename, d.root+string(os.PathSeparator)) {
		return "", false
	}
	return filename, true
}

func (d *dirFS) Stat(path string) (Stat, bool) {
	filename, ok := d.safeJoinPath(path)
	if !ok {
		return Stat{}, false
	}
	return osFS{}.Stat(filename)
}

func (d *dirFS) ReadFile(path string) ([]byte, error) {
	filename, ok := d.safeJoinPath(path)
	if !ok {
		return nil, ErrNotExist
	}
	return osFS{}.ReadFile(filename)
}

func (d *dirFS) Realpath(path string) (string, error) {
	filename, ok := d.safeJoinPath(path)
	if !ok {
		return "", ErrNotExist
	}
	real, err := filepath.EvalSymlinks(filename)
	if err != nil {
		if isNotExist(err) {
			return "", ErrNotExist
		}
		return "", err
	}
	if real == d.root {
		return "/", nil
	}
	rel, ok := strings.CutPrefix(real, d.root+string(os.PathSeparator))
	if !ok {
		// links pointing out of the root are left unresolved
		return path, nil
	}
	return "/" + filepath.ToSlash(rel), nil
}

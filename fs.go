package noderesolve

import (
	"github.com/esm-dev/noderesolve/internal/fsys"
	"github.com/esm-dev/noderesolve/internal/warn"
)

// FS is the filesystem a Resolver reads. Paths are absolute and
// slash-separated. Stat reports false for a missing path, ReadFile returns
// an error matching fs.ErrNotExist.
type FS = fsys.FS

// Stat is the file kind reported by FS.Stat.
type Stat = fsys.Stat

// MapFS is an in-memory FS for tests and virtual trees.
type MapFS = fsys.MapFS

// OSFS returns the operating system filesystem.
func OSFS() FS {
	return fsys.OS()
}

// DirFS returns a filesystem whose root "/" is the directory root.
func DirFS(root string) (FS, error) {
	return fsys.Dir(root)
}

// WarningSink receives deprecation warnings.
type WarningSink = warn.Sink

// WarningRecorder is a WarningSink that keeps every warning.
type WarningRecorder = warn.Recorder

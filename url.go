package noderesolve

import (
	"net/url"

	"github.com/esm-dev/noderesolve/internal/fileurl"
	"github.com/esm-dev/noderesolve/internal/npm"
)

// PathToFileURL returns the file: URL of the absolute path p.
func PathToFileURL(p string) *url.URL {
	return fileurl.PathToFileURL(p)
}

// FileURLToPath returns the decoded path of a file: URL.
func FileURLToPath(u *url.URL) (string, error) {
	return fileurl.FileURLToPath(u)
}

// IsValidPackageName reports whether name follows the npm naming rules.
func IsValidPackageName(name string) bool {
	return npm.ValidatePackageName(name)
}

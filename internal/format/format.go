// Package format classifies a resolved module URL.
package format

import (
	"net/url"

	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/fileurl"
	"github.com/esm-dev/noderesolve/internal/mime"
	"github.com/esm-dev/noderesolve/internal/nodepath"
	"github.com/esm-dev/noderesolve/internal/pkgscope"
)

// Format is a module format. None means unrecognized and leaves the
// decision to the caller.
type Format string

const (
	None               Format = ""
	CommonJS           Format = "commonjs"
	Module             Format = "module"
	JSON               Format = "json"
	Builtin            Format = "builtin"
	TypeScriptModule   Format = "typescript:module"
	TypeScriptCommonJS Format = "typescript:commonjs"
)

// PackageTypeLookup returns the "type" of the package scope containing a
// file: URL: "module", "commonjs" or "none".
type PackageTypeLookup func(u *url.URL) (string, error)

var extensionFormats = map[string]Format{
	".cjs":  CommonJS,
	".mjs":  Module,
	".json": JSON,
	".mts":  TypeScriptModule,
	".cts":  TypeScriptCommonJS,
	".node": None,
}

// Classify returns the format of u. An unknown extension of a file: URL
// is an ERR_UNKNOWN_FILE_EXTENSION error.
func Classify(u *url.URL, lookup PackageTypeLookup) (Format, error) {
	f, ok, err := classify(u, lookup)
	if err != nil {
		return None, err
	}
	if !ok {
		path, err := fileurl.ToPath(u)
		if err != nil {
			return None, err
		}
		return None, errs.NewUnknownFileExtension(nodepath.Extname(u.Path), path)
	}
	return f, nil
}

// Probe is Classify without the unknown extension error: ok is false for
// an unknown file extension so the caller can retry with other rules.
// Errors reading the package scope are still returned.
func Probe(u *url.URL, lookup PackageTypeLookup) (f Format, ok bool, err error) {
	return classify(u, lookup)
}

func classify(u *url.URL, lookup PackageTypeLookup) (Format, bool, error) {
	if u == nil {
		return None, true, nil
	}
	switch u.Scheme {
	case "node":
		return Builtin, true, nil
	case "data":
		return dataFormat(u), true, nil
	case "file":
		return fileFormat(u, lookup)
	}
	return None, true, nil
}

func dataFormat(u *url.URL) Format {
	body := u.Opaque
	if body == "" {
		body = u.Path
	}
	mediaType, _, ok := mime.DataURLType(body)
	if !ok {
		return None
	}
	if mime.IsJavaScript(mediaType) {
		return Module
	}
	if mediaType == "application/json" {
		return JSON
	}
	return None
}

func fileFormat(u *url.URL, lookup PackageTypeLookup) (Format, bool, error) {
	ext := nodepath.Extname(u.Path)
	switch ext {
	case ".js", ".ts", "":
	default:
		f, ok := extensionFormats[ext]
		return f, ok, nil
	}

	packageType := pkgscope.TypeNone
	if lookup != nil {
		t, err := lookup(u)
		if err != nil {
			return None, false, err
		}
		packageType = t
	}
	if ext == ".ts" {
		if packageType == pkgscope.TypeModule {
			return TypeScriptModule, true, nil
		}
		return TypeScriptCommonJS, true, nil
	}
	if packageType == pkgscope.TypeModule {
		return Module, true, nil
	}
	return CommonJS, true, nil
}

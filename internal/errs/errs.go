// Package errs defines the classified errors raised by the resolver.
// Codes and messages follow the ones Node.js reports for the same failures.
package errs

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Code identifies the class of a resolution error.
type Code string

const (
	ModuleNotFound            Code = "ERR_MODULE_NOT_FOUND"
	InvalidModuleSpecifier    Code = "ERR_INVALID_MODULE_SPECIFIER"
	InvalidPackageConfig      Code = "ERR_INVALID_PACKAGE_CONFIG"
	InvalidPackageTarget      Code = "ERR_INVALID_PACKAGE_TARGET"
	PackagePathNotExported    Code = "ERR_PACKAGE_PATH_NOT_EXPORTED"
	PackageImportNotDefined   Code = "ERR_PACKAGE_IMPORT_NOT_DEFINED"
	NetworkImportDisallowed   Code = "ERR_NETWORK_IMPORT_DISALLOWED"
	UnknownFileExtension      Code = "ERR_UNKNOWN_FILE_EXTENSION"
	UnsupportedDirImport      Code = "ERR_UNSUPPORTED_DIR_IMPORT"
	UnsupportedResolveRequest Code = "ERR_UNSUPPORTED_RESOLVE_REQUEST"
	InvalidURLScheme          Code = "ERR_INVALID_URL_SCHEME"
	InvalidFileURLHost        Code = "ERR_INVALID_FILE_URL_HOST"
	InvalidFileURLPath        Code = "ERR_INVALID_FILE_URL_PATH"
	InvalidArgValue           Code = "ERR_INVALID_ARG_VALUE"
)

// Error is a classified resolution error.
type Error struct {
	Code    Code
	Message string
	// URL is the computed URL when resolution got far enough to build one,
	// e.g. a missing file or a directory import.
	URL string
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrModuleNotFound            = &Error{Code: ModuleNotFound}
	ErrInvalidModuleSpecifier    = &Error{Code: InvalidModuleSpecifier}
	ErrInvalidPackageConfig      = &Error{Code: InvalidPackageConfig}
	ErrInvalidPackageTarget      = &Error{Code: InvalidPackageTarget}
	ErrPackagePathNotExported    = &Error{Code: PackagePathNotExported}
	ErrPackageImportNotDefined   = &Error{Code: PackageImportNotDefined}
	ErrNetworkImportDisallowed   = &Error{Code: NetworkImportDisallowed}
	ErrUnknownFileExtension      = &Error{Code: UnknownFileExtension}
	ErrUnsupportedDirImport      = &Error{Code: UnsupportedDirImport}
	ErrUnsupportedResolveRequest = &Error{Code: UnsupportedResolveRequest}
	ErrInvalidURLScheme          = &Error{Code: InvalidURLScheme}
	ErrInvalidFileURLHost        = &Error{Code: InvalidFileURLHost}
	ErrInvalidFileURLPath        = &Error{Code: InvalidFileURLPath}
	ErrInvalidArgValue           = &Error{Code: InvalidArgValue}
)

// CodeOf returns the code of err if it is a classified error.
func CodeOf(err error) (Code, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}

func importedFrom(base string) string {
	if base == "" {
		return ""
	}
	return " imported from " + base
}

// NewModuleNotFound reports a missing module. isPackage selects the
// "Cannot find package" wording used for bare specifiers.
func NewModuleNotFound(path string, base string, isPackage bool) *Error {
	kind := "module"
	if isPackage {
		kind = "package"
	}
	return &Error{
		Code:    ModuleNotFound,
		Message: fmt.Sprintf("Cannot find %s '%s'%s", kind, path, importedFrom(base)),
	}
}

func NewInvalidModuleSpecifier(request string, reason string, base string) *Error {
	msg := fmt.Sprintf("Invalid module \"%s\"", request)
	if reason != "" {
		msg += " " + reason
	}
	return &Error{
		Code:    InvalidModuleSpecifier,
		Message: msg + importedFrom(base),
	}
}

func NewInvalidPackageConfig(path string, base string, message string) *Error {
	msg := "Invalid package config " + path
	if base != "" {
		msg += " while importing " + base
	}
	if message != "" {
		msg += ". " + message
	}
	return &Error{Code: InvalidPackageConfig, Message: msg}
}

// NewInvalidPackageTarget reports a structurally invalid exports/imports
// target. packagePath is the package directory with a trailing slash.
func NewInvalidPackageTarget(packagePath string, key string, target any, isImport bool, base string) *Error {
	s, isString := target.(string)
	related := isString && !isImport && len(s) > 0 && !strings.HasPrefix(s, "./")
	var sb strings.Builder
	if key == "." && !isImport {
		sb.WriteString("Invalid \"exports\" main target ")
		sb.WriteString(stringifyTarget(target))
		sb.WriteString(" defined in the package config ")
	} else {
		field := "exports"
		if isImport {
			field = "imports"
		}
		fmt.Fprintf(&sb, "Invalid \"%s\" target %s defined for '%s' in the package config ", field, stringifyTarget(target), key)
	}
	sb.WriteString(packagePath)
	sb.WriteString("package.json")
	sb.WriteString(importedFrom(base))
	if related {
		sb.WriteString("; targets must start with \"./\"")
	}
	return &Error{Code: InvalidPackageTarget, Message: sb.String()}
}

func NewPackagePathNotExported(packagePath string, subpath string, base string) *Error {
	var msg string
	if subpath == "." {
		msg = fmt.Sprintf("No \"exports\" main defined in %spackage.json%s", packagePath, importedFrom(base))
	} else {
		msg = fmt.Sprintf("Package subpath '%s' is not defined by \"exports\" in %spackage.json%s", subpath, packagePath, importedFrom(base))
	}
	return &Error{Code: PackagePathNotExported, Message: msg}
}

func NewPackageImportNotDefined(specifier string, packagePath string, base string) *Error {
	msg := fmt.Sprintf("Package import specifier \"%s\" is not defined", specifier)
	if packagePath != "" {
		msg += " in package " + packagePath + "package.json"
	}
	return &Error{Code: PackageImportNotDefined, Message: msg + importedFrom(base)}
}

func NewNetworkImportDisallowed(specifier string, parent string, reason string) *Error {
	return &Error{
		Code:    NetworkImportDisallowed,
		Message: fmt.Sprintf("import of '%s' by %s is not supported: %s", specifier, parent, reason),
	}
}

func NewUnknownFileExtension(ext string, path string) *Error {
	return &Error{
		Code:    UnknownFileExtension,
		Message: fmt.Sprintf("Unknown file extension \"%s\" for %s", ext, path),
	}
}

func NewUnsupportedDirImport(path string, base string, url string) *Error {
	return &Error{
		Code:    UnsupportedDirImport,
		Message: fmt.Sprintf("Directory import '%s' is not supported resolving ES modules%s", path, importedFrom(base)),
		URL:     url,
	}
}

func NewUnsupportedResolveRequest(specifier string, base string) *Error {
	return &Error{
		Code:    UnsupportedResolveRequest,
		Message: fmt.Sprintf("Failed to resolve module specifier \"%s\" from \"%s\": Invalid relative URL or base scheme is not hierarchical.", specifier, base),
	}
}

func NewInvalidURLScheme(expected string) *Error {
	return &Error{Code: InvalidURLScheme, Message: "The URL must be of scheme " + expected}
}

func NewInvalidFileURLHost() *Error {
	return &Error{Code: InvalidFileURLHost, Message: `File URL host must be "localhost" or empty on linux`}
}

func NewInvalidFileURLPath(reason string) *Error {
	return &Error{Code: InvalidFileURLPath, Message: "File URL path " + reason}
}

func NewInvalidArgValue(name string, value string, reason string) *Error {
	return &Error{
		Code:    InvalidArgValue,
		Message: fmt.Sprintf("The argument '%s' %s. Received '%s'", name, reason, value),
	}
}

func stringifyTarget(target any) string {
	switch v := target.(type) {
	case string:
		b, _ := json.Marshal(v)
		return string(b)
	case nil:
		return "null"
	case fmt.Stringer:
		return v.String()
	}
	b, err := json.Marshal(target)
	if err != nil {
		return fmt.Sprint(target)
	}
	return string(b)
}

package noderesolve

import "github.com/esm-dev/noderesolve/internal/errs"

// Error is a classified resolution error. Use errors.Is with the Err
// values to test its class.
type Error = errs.Error

// ErrorCode is the Node.js error code of an Error, e.g.
// "ERR_MODULE_NOT_FOUND".
type ErrorCode = errs.Code

var (
	ErrModuleNotFound            = errs.ErrModuleNotFound
	ErrInvalidModuleSpecifier    = errs.ErrInvalidModuleSpecifier
	ErrInvalidPackageConfig      = errs.ErrInvalidPackageConfig
	ErrInvalidPackageTarget      = errs.ErrInvalidPackageTarget
	ErrPackagePathNotExported    = errs.ErrPackagePathNotExported
	ErrPackageImportNotDefined   = errs.ErrPackageImportNotDefined
	ErrNetworkImportDisallowed   = errs.ErrNetworkImportDisallowed
	ErrUnknownFileExtension      = errs.ErrUnknownFileExtension
	ErrUnsupportedDirImport      = errs.ErrUnsupportedDirImport
	ErrUnsupportedResolveRequest = errs.ErrUnsupportedResolveRequest
	ErrInvalidURLScheme          = errs.ErrInvalidURLScheme
	ErrInvalidFileURLHost        = errs.ErrInvalidFileURLHost
	ErrInvalidFileURLPath        = errs.ErrInvalidFileURLPath
	ErrInvalidArgValue           = errs.ErrInvalidArgValue
)

// CodeOf returns the code of err if it is, or wraps, an Error.
func CodeOf(err error) (ErrorCode, bool) {
	return errs.CodeOf(err)
}

package noderesolve

import "github.com/esm-dev/noderesolve/internal/format"

// Format is a module format, empty when unrecognized.
type Format = format.Format

const (
	FormatNone               = format.None
	FormatCommonJS           = format.CommonJS
	FormatModule             = format.Module
	FormatJSON               = format.JSON
	FormatBuiltin            = format.Builtin
	FormatTypeScriptModule   = format.TypeScriptModule
	FormatTypeScriptCommonJS = format.TypeScriptCommonJS
)

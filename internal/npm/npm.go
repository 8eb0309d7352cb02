package npm

import (
	"strings"

	"github.com/ije/gox/utils"
	"github.com/ije/gox/valid"
)

var (
	Naming = valid.Validator{valid.Range{'a', 'z'}, valid.Range{'A', 'Z'}, valid.Range{'0', '9'}, valid.Eq('_'), valid.Eq('.'), valid.Eq('-'), valid.Eq('+'), valid.Eq('$'), valid.Eq('!')}
)

// ValidatePackageName validates the package name.
// based on https://github.com/npm/validate-npm-package-name
func ValidatePackageName(pkgName string) bool {
	if l := len(pkgName); l == 0 || l > 214 {
		return false
	}
	if strings.HasPrefix(pkgName, "@") {
		scope, name := utils.SplitByFirstByte(pkgName, '/')
		return len(scope) > 1 && Naming.Match(scope[1:]) && Naming.Match(name)
	}
	return Naming.Match(pkgName)
}

// PackageSpecifier is a bare specifier split into its package name and
// the subpath inside the package.
type PackageSpecifier struct {
	Name    string
	Subpath string
	Scoped  bool
}

// ParsePackageName splits a bare specifier like "@scope/pkg/sub/path" into
// "@scope/pkg" and "./sub/path". The subpath of a plain name is ".".
// It returns false for names the loader refuses: scoped names without a
// slash, and names starting with "." or containing "%" or "\".
func ParsePackageName(specifier string) (PackageSpecifier, bool) {
	if specifier == "" {
		return PackageSpecifier{}, false
	}
	separatorIndex := strings.IndexByte(specifier, '/')
	valid := true
	scoped := false
	if specifier[0] == '@' {
		scoped = true
		if separatorIndex == -1 {
			valid = false
		} else if i := strings.IndexByte(specifier[separatorIndex+1:], '/'); i >= 0 {
			separatorIndex += 1 + i
		} else {
			separatorIndex = -1
		}
	}
	name := specifier
	subpath := "."
	if separatorIndex != -1 {
		name = specifier[:separatorIndex]
		subpath = "." + specifier[separatorIndex:]
	}
	if strings.HasPrefix(name, ".") || strings.ContainsAny(name, `%\`) {
		valid = false
	}
	if !valid {
		return PackageSpecifier{}, false
	}
	return PackageSpecifier{Name: name, Subpath: subpath, Scoped: scoped}, true
}

package mime

import (
	"regexp"
	"strings"

	"github.com/esm-dev/noderesolve/internal/nodepath"
)

var mimeExts = map[string][]string{
	"application/javascript;":  {"js", "mjs", "cjs"},
	"application/json;":        {"json"},
	"application/octet-stream": {"node"},
	"application/wasm":         {"wasm"},
	"text/jsx":                 {"jsx"},
	"text/tsx":                 {"tsx"},
	"text/typescript":          {"ts", "mts", "cts"},
}
var mimeMap = map[string]string{}

func init() {
	for k, v := range mimeExts {
		if strings.HasSuffix(k, ";") || strings.HasPrefix(k, "text/") {
			k = strings.TrimSuffix(k, ";") + "; charset=utf-8"
		}
		for _, ext := range v {
			mimeMap["."+ext] = k
		}
	}
	mimeExts = nil
}

// GetContentType returns the MIME type of the file with the given filename.
func GetContentType(filename string) string {
	return mimeMap[nodepath.Extname(filename)]
}

var (
	dataURLRegexp    = regexp.MustCompile(`^([^/]+/[^;,]+)[^,]*?(;base64)?,`)
	javascriptRegexp = regexp.MustCompile(`(?i)\s*(text|application)/javascript\s*(;\s*charset=utf-?8\s*)?`)
)

// DataURLType returns the media type of a data: URL body such as
// "text/javascript;base64,...". ok is false when the body has no type.
func DataURLType(body string) (mediaType string, base64 bool, ok bool) {
	m := dataURLRegexp.FindStringSubmatch(body)
	if m == nil {
		return "", false, false
	}
	return m[1], m[2] != "", true
}

// IsJavaScript reports whether mediaType is a JavaScript type.
func IsJavaScript(mediaType string) bool {
	return mediaType != "" && javascriptRegexp.MatchString(mediaType)
}

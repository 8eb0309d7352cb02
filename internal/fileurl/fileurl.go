// Package fileurl converts between absolute POSIX paths and file: URLs.
package fileurl

import (
	"net/url"
	"strings"

	"github.com/esm-dev/noderesolve/internal/errs"
	"github.com/esm-dev/noderesolve/internal/nodepath"
)

// FileURLToPath returns the decoded absolute path of a file: URL. Encoded
// "/" and "\" characters are rejected.
func FileURLToPath(u *url.URL) (string, error) {
	if err := checkFileURL(u); err != nil {
		return "", err
	}
	escaped := u.EscapedPath()
	for i := 0; i+2 < len(escaped); i++ {
		if escaped[i] != '%' {
			continue
		}
		switch strings.ToLower(escaped[i+1 : i+3]) {
		case "2f", "5c":
			return "", errs.NewInvalidFileURLPath(`must not include encoded \ or / characters`)
		}
	}
	return unescapePath(escaped)
}

// ToPath is FileURLToPath for URLs built from paths, like the output of
// PathToFileURL. "%5C" decodes to a backslash, which is a valid POSIX file
// name character.
func ToPath(u *url.URL) (string, error) {
	if err := checkFileURL(u); err != nil {
		return "", err
	}
	return unescapePath(u.EscapedPath())
}

func checkFileURL(u *url.URL) error {
	if u == nil || u.Scheme != "file" {
		return errs.NewInvalidURLScheme("file")
	}
	if u.Host != "" && u.Host != "localhost" {
		return errs.NewInvalidFileURLHost()
	}
	return nil
}

func unescapePath(escaped string) (string, error) {
	p, err := url.PathUnescape(escaped)
	if err != nil {
		return "", errs.NewInvalidFileURLPath("must be a valid percent-encoded path")
	}
	return p, nil
}

// ParseFileURL parses s and returns its path, failing unless s is a file: URL.
func ParseFileURL(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", errs.NewInvalidURLScheme("file")
	}
	return FileURLToPath(u)
}

// PathToFileURL returns the file: URL of p, resolved against "/".
func PathToFileURL(p string) *url.URL {
	resolved := nodepath.Resolve(p)
	if strings.HasSuffix(p, "/") && resolved != "/" {
		resolved += "/"
	}
	return &url.URL{Scheme: "file", Path: resolved, RawPath: encodePathChars(resolved)}
}

// encodePathChars percent-encodes the characters a URL parser would
// reinterpret. "%" goes first so later escapes are not escaped twice.
func encodePathChars(p string) string {
	if strings.Contains(p, "%") {
		p = strings.ReplaceAll(p, "%", "%25")
	}
	if strings.Contains(p, `\`) {
		p = strings.ReplaceAll(p, `\`, "%5C")
	}
	if strings.Contains(p, "\n") {
		p = strings.ReplaceAll(p, "\n", "%0A")
	}
	if strings.Contains(p, "\r") {
		p = strings.ReplaceAll(p, "\r", "%0D")
	}
	if strings.Contains(p, "\t") {
		p = strings.ReplaceAll(p, "\t", "%09")
	}
	if strings.Contains(p, "?") {
		p = strings.ReplaceAll(p, "?", "%3F")
	}
	if strings.Contains(p, "#") {
		p = strings.ReplaceAll(p, "#", "%23")
	}
	return encodeRest(p)
}

const upperhex = "0123456789ABCDEF"

func shouldEscape(c byte) bool {
	switch c {
	case '"', '<', '>', '`', '{', '}', '^', '|':
		return true
	}
	return c <= 0x20 || c >= 0x7f
}

// encodeRest escapes bytes outside the WHATWG path percent-encode set,
// leaving existing escapes untouched.
func encodeRest(p string) string {
	n := 0
	for i := 0; i < len(p); i++ {
		if shouldEscape(p[i]) {
			n++
		}
	}
	if n == 0 {
		return p
	}
	buf := make([]byte, 0, len(p)+2*n)
	for i := 0; i < len(p); i++ {
		c := p[i]
		if shouldEscape(c) {
			buf = append(buf, '%', upperhex[c>>4], upperhex[c&15])
		} else {
			buf = append(buf, c)
		}
	}
	return string(buf)
}

// HasScheme reports whether s starts with a URL scheme like "node:" or
// "https:", which makes it an absolute URL rather than a path or a bare
// package name.
func HasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' || c == '+' || c == '-' || c == '.':
			if i == 0 {
				return false
			}
		case c == ':':
			return i > 0
		default:
			return false
		}
	}
	return false
}

// Display returns the path of a file: URL, or the URL itself for other
// schemes. It is used in messages.
func Display(u *url.URL) string {
	if u == nil {
		return ""
	}
	if p, err := ToPath(u); err == nil {
		return p
	}
	return u.String()
}

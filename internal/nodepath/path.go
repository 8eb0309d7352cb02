// Package nodepath implements the POSIX flavour of Node's path module.
//
// Unlike the standard library's path package it keeps Node's exact results:
// Resolve works from a "/" working directory, Normalize keeps trailing
// slashes and Extname ignores leading dots of dot-files.
package nodepath

import "strings"

// Sep is the path segment separator.
const Sep = "/"

// normalizeString resolves "." and ".." segments in p. Leading ".." are kept
// only when allowAboveRoot is set.
func normalizeString(p string, allowAboveRoot bool) string {
	var res strings.Builder
	lastSegmentLength := 0
	lastSlash := -1
	dots := 0
	var code byte
	for i := 0; i <= len(p); i++ {
		if i < len(p) {
			code = p[i]
		} else if code == '/' {
			break
		} else {
			code = '/'
		}

		if code == '/' {
			if lastSlash == i-1 || dots == 1 {
				// noop
			} else if dots == 2 {
				s := res.String()
				if len(s) < 2 || lastSegmentLength != 2 || s[len(s)-1] != '.' || s[len(s)-2] != '.' {
					if len(s) > 2 {
						idx := strings.LastIndexByte(s, '/')
						if idx == -1 {
							s = ""
							lastSegmentLength = 0
						} else {
							s = s[:idx]
							lastSegmentLength = len(s) - 1 - strings.LastIndexByte(s, '/')
						}
						res.Reset()
						res.WriteString(s)
						lastSlash = i
						dots = 0
						continue
					} else if len(s) > 0 {
						res.Reset()
						lastSegmentLength = 0
						lastSlash = i
						dots = 0
						continue
					}
				}
				if allowAboveRoot {
					if res.Len() > 0 {
						res.WriteString("/..")
					} else {
						res.WriteString("..")
					}
					lastSegmentLength = 2
				}
			} else {
				if res.Len() > 0 {
					res.WriteByte('/')
				}
				res.WriteString(p[lastSlash+1 : i])
				lastSegmentLength = i - lastSlash - 1
			}
			lastSlash = i
			dots = 0
		} else if code == '.' && dots != -1 {
			dots++
		} else {
			dots = -1
		}
	}
	return res.String()
}

// Resolve resolves a sequence of paths into an absolute path, processing
// from right to left until an absolute path is built. Empty segments are
// skipped; the working directory is "/".
func Resolve(paths ...string) string {
	resolved := ""
	absolute := false
	for i := len(paths) - 1; i >= -1 && !absolute; i-- {
		p := "/"
		if i >= 0 {
			p = paths[i]
		}
		if p == "" {
			continue
		}
		resolved = p + "/" + resolved
		absolute = p[0] == '/'
	}
	resolved = normalizeString(resolved, !absolute)
	if absolute {
		return "/" + resolved
	}
	if resolved == "" {
		return "."
	}
	return resolved
}

// IsAbsolute reports whether p starts with a slash.
func IsAbsolute(p string) bool {
	return strings.HasPrefix(p, "/")
}

// Normalize collapses "." and ".." segments and duplicate slashes, keeping
// a trailing slash if p had one.
func Normalize(p string) string {
	if p == "" {
		return "."
	}
	absolute := p[0] == '/'
	trailing := p[len(p)-1] == '/'
	p = normalizeString(p, !absolute)
	if p == "" {
		if absolute {
			return "/"
		}
		if trailing {
			return "./"
		}
		return "."
	}
	if trailing {
		p += "/"
	}
	if absolute {
		return "/" + p
	}
	return p
}

// Join joins the non-empty segments with a slash and normalizes the result.
func Join(paths ...string) string {
	var parts []string
	for _, p := range paths {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "."
	}
	return Normalize(strings.Join(parts, "/"))
}

// Dirname returns the directory portion of p, ignoring trailing slashes.
func Dirname(p string) string {
	if p == "" {
		return "."
	}
	hasRoot := p[0] == '/'
	end := -1
	matchedSlash := true
	for i := len(p) - 1; i >= 1; i-- {
		if p[i] == '/' {
			if !matchedSlash {
				end = i
				break
			}
		} else {
			matchedSlash = false
		}
	}
	if end == -1 {
		if hasRoot {
			return "/"
		}
		return "."
	}
	if hasRoot && end == 1 {
		return "//"
	}
	return p[:end]
}

// Basename returns the last portion of p, ignoring trailing slashes. If ext
// is given and matches the end of the name, it is removed.
func Basename(p string, ext ...string) string {
	start := 0
	end := -1
	matchedSlash := true
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			if !matchedSlash {
				start = i + 1
				break
			}
		} else if end == -1 {
			matchedSlash = false
			end = i + 1
		}
	}
	if end == -1 {
		return ""
	}
	name := p[start:end]
	if len(ext) > 0 && ext[0] != "" && ext[0] != name && strings.HasSuffix(name, ext[0]) {
		name = name[:len(name)-len(ext[0])]
	}
	return name
}

// Extname returns the extension of the last portion of p, from the last
// dot to the end. Dot-files like ".bashrc" and the names "." and ".." have
// no extension.
func Extname(p string) string {
	startDot := -1
	startPart := 0
	end := -1
	matchedSlash := true
	// 0: no dot seen before startDot, 1: a dot seen, -1: a non-dot seen
	preDotState := 0
	for i := len(p) - 1; i >= 0; i-- {
		code := p[i]
		if code == '/' {
			if !matchedSlash {
				startPart = i + 1
				break
			}
			continue
		}
		if end == -1 {
			matchedSlash = false
			end = i + 1
		}
		if code == '.' {
			if startDot == -1 {
				startDot = i
			} else if preDotState != 1 {
				preDotState = 1
			}
		} else if startDot != -1 {
			preDotState = -1
		}
	}
	if startDot == -1 || end == -1 || preDotState == 0 ||
		(preDotState == 1 && startDot == end-1 && startDot == startPart+1) {
		return ""
	}
	return p[startDot:end]
}

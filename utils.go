package cybervault

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsValidPath validates that a path string meets the requirements for a storage key.
// It checks that the path:
//   - is not empty, ".", or "/"
//   - is relative (does not start with "/")
//   - does not end with "/"
//   - does not contain ".." or "." segments
//   - does not contain "//" (empty segments)
//   - does not contain invalid characters: \ ? #
//   - is valid UTF-8
//   - does not contain null bytes, control characters (< 0x20), DEL (0x7f), or
//     whitespace other than a plain space
//
// Returns true if the path is valid, false otherwise.
func IsValidPath(p string) bool {
	if p == "" || p == "/" || p == "." {
		return false
	}

	if p[0] == '/' {
		return false
	}

	if strings.HasSuffix(p, "/") {
		return false
	}

	if strings.Contains(p, "//") {
		return false
	}

	if strings.ContainsAny(p, `\?#`) {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return false
		}
	}

	for _, r := range p {
		if r == ' ' {
			continue
		}
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// IsValidFileName reports whether name can be used as the last segment of a storage key.
func IsValidFileName(name string) bool {
	if strings.Contains(name, "/") {
		return false
	}
	if strings.TrimSpace(name) != name {
		return false
	}
	return IsValidPath(name)
}

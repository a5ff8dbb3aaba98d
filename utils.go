package authd

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// extensions maps accepted upload content types to their canonical file
// extension. Anything else is rejected with ErrUnsupportedMedia.
var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// ExtensionFor returns the canonical file extension for an accepted image
// content type. ok is false for any type outside the allow-list.
func ExtensionFor(contentType string) (ext string, ok bool) {
	ext, ok = extensions[contentType]
	return ext, ok
}

// AcceptedExtensions returns the extensions of the upload allow-list, for
// error messages.
func AcceptedExtensions() []string {
	return []string{"jpg", "png"}
}

// IsValidPath validates a storage key. A valid key:
//   - is not empty, ".", or "/"
//   - is relative and does not end with "/"
//   - contains no ".." or "//" segments and no "." segments
//   - contains no control characters, whitespace, or the characters \ ? # ~
//   - is valid UTF-8
func IsValidPath(p string) bool {
	if p == "" || p == "/" || p == "." {
		return false
	}

	if p[0] == '/' || strings.HasSuffix(p, "/") {
		return false
	}

	if strings.Contains(p, "..") || strings.Contains(p, "//") {
		return false
	}

	if strings.HasPrefix(p, "./") || strings.Contains(p, "/./") || strings.HasSuffix(p, "/.") {
		return false
	}

	if strings.ContainsAny(p, `\?#~`) {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

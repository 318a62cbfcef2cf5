package intake

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrEmptyDrop is returned when a drop payload holds no paths.
var ErrEmptyDrop = errors.New("drop payload contains no files")

// imageExtensions are the file types offered by the open dialog.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
}

// IsImagePath reports whether path has a supported image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ParseDropList splits a drop payload into paths.
//
// The payload is a Tcl-style list as produced by tkdnd and similar
// toolkits: items are separated by whitespace, items containing spaces are
// wrapped in braces or double quotes, and a backslash escapes whitespace,
// braces and quotes. Backslashes before any other character are kept so
// Windows paths survive. file:// URIs are converted to local paths.
func ParseDropList(payload string) []string {
	var (
		items []string
		cur   strings.Builder
		runes = []rune(payload)
	)

	flush := func() {
		if cur.Len() > 0 {
			items = append(items, normalizeDropped(cur.String()))
			cur.Reset()
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			flush()
		case r == '{' && cur.Len() == 0:
			depth := 1
			for i++; i < len(runes); i++ {
				if runes[i] == '{' {
					depth++
				} else if runes[i] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				cur.WriteRune(runes[i])
			}
			flush()
		case r == '"' && cur.Len() == 0:
			for i++; i < len(runes) && runes[i] != '"'; i++ {
				cur.WriteRune(runes[i])
			}
			flush()
		case r == '\\' && i+1 < len(runes) && isEscapable(runes[i+1]):
			i++
			cur.WriteRune(runes[i])
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return items
}

// FirstDropped returns the first path of a drop payload. Only one image is
// processed per drop; the rest are ignored.
func FirstDropped(payload string) (string, error) {
	items := ParseDropList(payload)
	if len(items) == 0 {
		return "", ErrEmptyDrop
	}
	return items[0], nil
}

func isEscapable(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(`{}"\`, r)
}

// normalizeDropped converts file:// URIs to paths and strips stray braces.
func normalizeDropped(item string) string {
	item = strings.Trim(item, "{}")
	if strings.HasPrefix(item, "file://") {
		if u, err := url.Parse(item); err == nil && u.Path != "" {
			return filepath.FromSlash(trimDriveSlash(u.Path))
		}
	}
	return item
}

// trimDriveSlash turns "/C:/x" from a Windows file URI into "C:/x".
func trimDriveSlash(p string) string {
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' && isDriveLetter(p[1]) {
		return p[1:]
	}
	return p
}

func isDriveLetter(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// Package certificate turns flattened certificate text into a verified record.
package certificate

import (
	"strings"
	"unicode"
)

// FindAfter returns the value that follows the first occurrence of label in
// text. The value runs up to the next newline, or failing that the next
// period, or failing that the end of text, and is trimmed of surrounding
// whitespace and colons. It returns nil when label does not occur; a label at
// the very end of text yields a pointer to "".
func FindAfter(text, label string) *string {
	if label == "" {
		return nil
	}
	i := strings.Index(text, label)
	if i < 0 {
		return nil
	}
	rest := text[i+len(label):]

	end := strings.IndexByte(rest, '\n')
	if end < 0 {
		end = strings.IndexByte(rest, '.')
	}
	if end < 0 {
		end = len(rest)
	}

	v := strings.TrimFunc(rest[:end], func(r rune) bool {
		return r == ':' || unicode.IsSpace(r)
	})
	return &v
}

package config

import (
	"strings"
	"unicode"
)

// CleanFileName removes characters not allowed in file names on this system,
// control characters and leading dots.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(unsafeFileNameChars, sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimSpace(strings.TrimLeft(out, "."))
	if len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}

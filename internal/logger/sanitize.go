package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxPathLength limita o tamanho de paths e identificadores nos logs.
const MaxPathLength = 500

// SanitizePath remove caracteres de controle e trunca em MaxPathLength.
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}
	if !utf8.ValidString(path) {
		path = strings.ToValidUTF8(path, "")
	}

	var b strings.Builder
	b.Grow(len(path))
	for _, r := range path {
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > MaxPathLength {
		out = strings.ToValidUTF8(out[:MaxPathLength], "") + "...[truncated]"
	}
	return out
}

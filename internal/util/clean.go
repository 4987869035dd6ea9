package util

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Replacements are applied in argument order at each position, so "\r\n"
// wins over a bare "\r".
var lineEndingReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
)

// NormalizeExtract prepares a plain-text extract for display: a leading BOM
// and invalid UTF-8 are removed and line endings become "\n". Everything else,
// blank lines and surrounding whitespace included, is kept as delivered.
func NormalizeExtract(s string) string {
	b := bytes.TrimPrefix([]byte(s), utf8BOM)
	if !utf8.Valid(b) {
		b = bytes.ToValidUTF8(b, nil)
	}
	return lineEndingReplacer.Replace(string(b))
}

// IsBlank reports whether s has no visible text.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

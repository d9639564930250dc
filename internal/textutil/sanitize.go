// Package textutil holds small pure string/path helpers shared across the
// core: filename sanitization and collision-safe path uniquification.
package textutil

import (
	"regexp"
	"strings"
)

// unsafeReplacer strips characters that are illegal (or awkward) in file
// names on at least one of Linux/macOS/Windows.
var unsafeReplacer = strings.NewReplacer(
	"<", "",
	">", "",
	":", "",
	"\"", "",
	"/", "",
	"\\", "",
	"|", "",
	"?", "",
	"*", "",
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0e-\x1f\x7f]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeFileName removes characters that are unsafe in a file name
// (`< > : " / \ | ? *` and control characters other than tab, newline,
// form feed and carriage return), collapses runs of whitespace (those four
// included) to a single space, and trims the result. It is idempotent:
// SanitizeFileName(SanitizeFileName(s)) == SanitizeFileName(s).
func SanitizeFileName(name string) string {
	cleaned := controlChars.ReplaceAllString(name, "")
	cleaned = unsafeReplacer.Replace(cleaned)
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

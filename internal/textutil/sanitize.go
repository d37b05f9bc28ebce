// Package textutil provides filename sanitization and object-name folding
// helpers shared by the staging and catalog layers.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "-",
	"\x00", "",
)

// SanitizeFileName strips characters that are unsafe in file names.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// SanitizeSegment converts a string to a filesystem-safe path segment:
// unsafe characters are stripped, spaces become hyphens.
func SanitizeSegment(value string) string {
	value = SanitizeFileName(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, " ", "-")
	return strings.Trim(value, "-_")
}

var objectFolder = cases.Fold()

// FoldObjectName normalizes an object name for case-insensitive comparison.
// Surrounding whitespace is trimmed and the remainder is Unicode case folded.
func FoldObjectName(name string) string {
	return objectFolder.String(strings.TrimSpace(name))
}

// TitleObjectName renders an object name with title casing for display.
func TitleObjectName(name string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(name))
}

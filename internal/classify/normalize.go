package classify

import (
	"regexp"
	"strings"
)

var (
	// Inline XBRL viewers append element metadata to the visible text.
	metadataLabel = regexp.MustCompile(`\b(Name|Namespace Prefix|Data Type|Balance Type|Period Type):.*`)
	metadataTail  = regexp.MustCompile(`\b(References|Details).*`)
	pageNumber    = regexp.MustCompile(`Page \d+`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Normalize strips taxonomy metadata labels and page numbers from raw
// fragment text and collapses whitespace. Labels are removed up to the end of
// their line.
func Normalize(raw string) string {
	text := metadataLabel.ReplaceAllString(raw, "")
	text = metadataTail.ReplaceAllString(text, "")
	text = pageNumber.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

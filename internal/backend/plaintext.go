package backend

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// PlainText drops markup a model added to a translation of plain text.
// Input that already held markup is left alone.
func PlainText(input, translated string) string {
	if strings.Contains(input, "<") || !strings.Contains(translated, "<") {
		return translated
	}
	return html.UnescapeString(stripPolicy.Sanitize(translated))
}

package app

import (
	"html"
	"strings"
)

// sanitizeString trims whitespace and escapes HTML in user-supplied text
// before it is stored.
func sanitizeString(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

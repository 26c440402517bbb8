package mail

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Render replaces {{key}} placeholders in a template with values from data.
// Keys are trimmed, so {{ vorname }} and {{vorname}} are equivalent.
// Unknown keys render as an empty string rather than leaking the placeholder.
func Render(template string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		return data[key]
	})
}

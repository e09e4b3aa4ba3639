// Package sanitize strips message HTML down to the allow-list the messenger
// accepts: paragraphs, bold, italic, inline code, and anchors carrying only
// an href. Applied once at write time; stored text is served as-is.
package sanitize

import "github.com/microcosm-cc/bluemonday"

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "strong", "em", "code")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	return p
}

// HTML returns text with every tag and attribute outside the allow-list
// stripped.
func HTML(text string) string {
	return policy.Sanitize(text)
}

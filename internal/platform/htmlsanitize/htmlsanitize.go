// Package htmlsanitize cleans user-generated HTML before it is stored.
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

// policy is safe for concurrent use once built.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	return p
}

// Sanitize strips scripts, event handlers and unsafe URLs, keeping formatting markup.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// Sanitizer adapts Sanitize to the store's Sanitizer interface.
type Sanitizer struct{}

func (Sanitizer) Sanitize(s string) string { return Sanitize(s) }

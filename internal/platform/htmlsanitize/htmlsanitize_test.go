package htmlsanitize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"forum_backend/internal/platform/htmlsanitize"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain text", in: "Hello, World!", want: "Hello, World!"},
		{name: "safe markup", in: "<p><strong>Bold</strong> and <em>italic</em></p>", want: "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{name: "script removed", in: "<p>Hello</p><script>alert('xss')</script>", want: "<p>Hello</p>"},
		{name: "table attributes kept", in: `<table><tr><td colspan="2">Cell</td></tr></table>`, want: `<table><tr><td colspan="2">Cell</td></tr></table>`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, htmlsanitize.Sanitize(tt.in))
		})
	}
}

func TestSanitize_StripsUnsafeAttributes(t *testing.T) {
	t.Parallel()

	assert.NotContains(t, htmlsanitize.Sanitize(`<a href="javascript:alert(1)">x</a>`), "javascript:")
	assert.NotContains(t, htmlsanitize.Sanitize(`<p onclick="alert(1)">x</p>`), "onclick")
	assert.Contains(t, htmlsanitize.Sanitize(`<a href="https://example.com">Link</a>`), "https://example.com")
}

func TestSanitizer(t *testing.T) {
	t.Parallel()

	var s htmlsanitize.Sanitizer
	assert.Equal(t, "<b>hi</b>", s.Sanitize("<b>hi</b><script>x</script>"))
}

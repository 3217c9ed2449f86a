package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"dimria/pkg/security"
)

// recordingSink captures audit events for assertions.
type recordingSink struct {
	events []security.AuditEvent
}

func (r *recordingSink) Record(e security.AuditEvent) {
	r.events = append(r.events, e)
}

func TestSanitize_StripsMarkupAndTrims(t *testing.T) {
	sink := &recordingSink{}
	s := security.NewSanitizer(sink)

	assert.Equal(t, "hello", s.Sanitize("  <b>hello</b>  ", "title"))
	assert.Equal(t, "plain text", s.Sanitize("plain text", "title"))
	assert.Empty(t, sink.events, "clean input must not produce audit events")
}

func TestSanitize_RejectsDangerousPatterns(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"script tag", "<script>alert(1)</script>"},
		{"javascript uri", "javascript:alert(1)"},
		{"event handler", `<img src=x onerror=alert(1)>`},
		{"iframe", "<iframe src='http://evil'></iframe>"},
		{"object", "<object data='x'></object>"},
		{"embed", "<embed src='x'>"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			s := security.NewSanitizer(sink)

			assert.Equal(t, "", s.Sanitize(tc.input, "comment_field"))
			assert.Len(t, sink.events, 1, "exactly one audit event per rejection")
			assert.Equal(t, "comment_field", sink.events[0].Source)
			assert.NotEmpty(t, sink.events[0].ID)
			assert.False(t, sink.events[0].Timestamp.IsZero())
		})
	}
}

func TestSanitize_AuditValueIsCapped(t *testing.T) {
	sink := &recordingSink{}
	s := security.NewSanitizer(sink)

	long := "<script>" + strings.Repeat("a", 500)
	assert.Equal(t, "", s.Sanitize(long, "payload"))
	assert.Len(t, sink.events, 1)
	assert.LessOrEqual(t, len(sink.events[0].Value), 100)
}

func TestSanitizeEmail_PreservesAddressCharacters(t *testing.T) {
	sink := &recordingSink{}
	s := security.NewSanitizer(sink)

	assert.Equal(t, "user@example.com", s.SanitizeEmail("  user@example.com  "))
	assert.Empty(t, sink.events)

	assert.Equal(t, "", s.SanitizeEmail("<script>x</script>@example.com"))
	assert.Len(t, sink.events, 1)
	assert.Equal(t, "email_input", sink.events[0].Source)
}

func TestSanitizePassword_TrimsOnly(t *testing.T) {
	sink := &recordingSink{}
	s := security.NewSanitizer(sink)

	// Passwords are hashed, never rendered: special characters survive.
	assert.Equal(t, `p4$s<w>ord&`, s.SanitizePassword(` p4$s<w>ord& `))
	assert.Empty(t, sink.events)

	assert.Equal(t, "", s.SanitizePassword("javascript:void(0)"))
	assert.Len(t, sink.events, 1)
	assert.Equal(t, "password_input", sink.events[0].Source)
}

func TestSanitizeMap_RecursesOverStringLeaves(t *testing.T) {
	sink := &recordingSink{}
	s := security.NewSanitizer(sink)

	input := map[string]any{
		"title": "<b>Nice flat</b>",
		"price": 1500.0,
		"rooms": 3,
		"nested": map[string]any{
			"note": "<script>alert(1)</script>",
		},
		"tags": []any{"<i>cozy</i>", 42},
	}

	clean := s.SanitizeMap(input)

	assert.Equal(t, "Nice flat", clean["title"])
	assert.Equal(t, 1500.0, clean["price"], "non-string leaves stay untouched")
	assert.Equal(t, 3, clean["rooms"])
	assert.Equal(t, "", clean["nested"].(map[string]any)["note"])
	assert.Equal(t, "cozy", clean["tags"].([]any)[0])
	assert.Equal(t, 42, clean["tags"].([]any)[1])

	assert.Len(t, sink.events, 1)
	assert.Equal(t, "note", sink.events[0].Source, "audit source is the map key")
}

func TestBind_AttachesCallerOrigin(t *testing.T) {
	sink := &recordingSink{}
	s := security.NewSanitizer(sink).Bind("203.0.113.7", "curl/8.0")

	s.Sanitize("<script>x</script>", "form_field")

	assert.Len(t, sink.events, 1)
	assert.Equal(t, "203.0.113.7", sink.events[0].RemoteIP)
	assert.Equal(t, "curl/8.0", sink.events[0].UserAgent)
}

func TestEscape(t *testing.T) {
	s := security.NewSanitizer(nil)
	assert.Equal(t, "&lt;a&gt; &amp; &#34;b&#34;", s.Escape(`<a> & "b"`))
}

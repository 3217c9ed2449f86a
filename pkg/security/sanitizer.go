// Package security normalizes untrusted input before it reaches business
// logic. Every string coming from a request passes through the Sanitizer:
// markup is stripped, special characters are escaped for HTML output and
// values matching known injection patterns are discarded entirely, leaving
// an audit trail instead of the tainted value.
package security

import (
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// auditValueLimit caps how much of a rejected payload is retained in the
// audit event.
const auditValueLimit = 100

// dangerousPatterns flag input that is never legitimate in this
// application: script tags, javascript: URIs, inline event handlers and
// embedded object/iframe tags. Matched against the raw value, before any
// stripping, so that "<script>..." cannot hide behind tag removal.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<iframe`),
	regexp.MustCompile(`(?i)<object`),
	regexp.MustCompile(`(?i)<embed`),
}

// AuditEvent records a rejected, potentially malicious input value.
type AuditEvent struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Value     string    `json:"value"`
	RemoteIP  string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditSink receives audit events. Implementations must not block the
// request path for long; recording is best effort.
type AuditSink interface {
	Record(event AuditEvent)
}

// LogSink writes audit events to the standard logger.
type LogSink struct{}

func (LogSink) Record(e AuditEvent) {
	log.Printf("security: rejected input (id=%s source=%s ip=%s ua=%q value=%q)",
		e.ID, e.Source, e.RemoteIP, e.UserAgent, e.Value)
}

// MultiSink fans an audit event out to several sinks.
type MultiSink []AuditSink

func (m MultiSink) Record(e AuditEvent) {
	for _, s := range m {
		s.Record(e)
	}
}

// Sanitizer is a stateless capability object injected into services and
// handlers. The zero origin is used when the caller's network identity is
// unknown; Bind attaches it per request. No method returns an error:
// unsafe input always degrades to an empty string.
type Sanitizer struct {
	policy    *bluemonday.Policy
	sink      AuditSink
	remoteIP  string
	userAgent string
}

// NewSanitizer builds a Sanitizer reporting rejections to sink. A nil sink
// falls back to the standard logger.
func NewSanitizer(sink AuditSink) *Sanitizer {
	if sink == nil {
		sink = LogSink{}
	}
	return &Sanitizer{
		// The strict policy strips every tag and escapes what remains,
		// which matches the output medium (HTML views).
		policy: bluemonday.StrictPolicy(),
		sink:   sink,
	}
}

// Bind returns a copy of the sanitizer carrying the caller's network
// origin, so audit events record who sent the rejected value.
func (s *Sanitizer) Bind(remoteIP, userAgent string) *Sanitizer {
	bound := *s
	bound.remoteIP = remoteIP
	bound.userAgent = userAgent
	return &bound
}

// IsSafe reports whether value matches none of the dangerous patterns.
func (s *Sanitizer) IsSafe(value string) bool {
	for _, p := range dangerousPatterns {
		if p.MatchString(value) {
			return false
		}
	}
	return true
}

// Sanitize strips markup, escapes HTML special characters and trims
// surrounding whitespace. A value matching a dangerous pattern is
// discarded: the caller receives "" and exactly one audit event is
// recorded under the given source tag.
func (s *Sanitizer) Sanitize(value, source string) string {
	if !s.IsSafe(value) {
		s.audit(value, source)
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(value))
}

// SanitizeEmail strips markup and trims whitespace while preserving the
// characters an address needs. Dangerous patterns still reject the value.
func (s *Sanitizer) SanitizeEmail(email string) string {
	if !s.IsSafe(email) {
		s.audit(email, "email_input")
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(email))
}

// SanitizePassword trims whitespace only; passwords are hashed, never
// rendered, so no escaping is applied. Dangerous patterns still reject.
func (s *Sanitizer) SanitizePassword(password string) string {
	if !s.IsSafe(password) {
		s.audit(password, "password_input")
		return ""
	}
	return strings.TrimSpace(password)
}

// SanitizeName sanitizes a display name under the name_input source tag.
func (s *Sanitizer) SanitizeName(name string) string {
	if !s.IsSafe(name) {
		s.audit(name, "name_input")
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(name))
}

// SanitizeMap applies Sanitize to every string leaf of a decoded payload,
// recursing into nested maps and slices. Non-string leaves are returned
// untouched. The map key doubles as the audit source tag.
func (s *Sanitizer) SanitizeMap(data map[string]any) map[string]any {
	clean := make(map[string]any, len(data))
	for key, value := range data {
		clean[key] = s.sanitizeLeaf(value, key)
	}
	return clean
}

// SanitizeSlice applies the same rule to a sequence of untrusted values.
func (s *Sanitizer) SanitizeSlice(data []any, source string) []any {
	clean := make([]any, len(data))
	for i, value := range data {
		clean[i] = s.sanitizeLeaf(value, source)
	}
	return clean
}

func (s *Sanitizer) sanitizeLeaf(value any, source string) any {
	switch v := value.(type) {
	case string:
		return s.Sanitize(v, source)
	case map[string]any:
		return s.SanitizeMap(v)
	case []any:
		return s.SanitizeSlice(v, source)
	default:
		return v
	}
}

// Escape encodes a string for safe inclusion in HTML output without
// removing anything.
func (s *Sanitizer) Escape(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&#34;",
		"'", "&#39;",
	)
	return replacer.Replace(value)
}

func (s *Sanitizer) audit(value, source string) {
	ip := s.remoteIP
	if ip == "" {
		ip = "unknown"
	}
	ua := s.userAgent
	if ua == "" {
		ua = "unknown"
	}
	if len(value) > auditValueLimit {
		value = value[:auditValueLimit]
	}
	s.sink.Record(AuditEvent{
		ID:        uuid.New().String(),
		Source:    source,
		Value:     value,
		RemoteIP:  ip,
		UserAgent: ua,
		Timestamp: time.Now(),
	})
}

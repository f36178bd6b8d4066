// Package logsanitize prepares a raw SQL query string for inclusion in a
// log record: truncated to a bounded length and with credential-shaped
// substrings that might appear in a literal value (a password or a
// connection string pasted into an INSERT/UPDATE by mistake) redacted.
// Adapted from the teacher's pkg/logging/sanitizer.go, trimmed to the
// patterns that can plausibly occur inside SQL text — JWTs and API keys
// don't show up in queries the way they do in HTTP logs, so those
// patterns are dropped.
package logsanitize

import "regexp"

const (
	// MaxQueryLogLength bounds how much of a query is kept in a log line.
	MaxQueryLogLength = 200
	// RedactedText replaces any sensitive substring found.
	RedactedText = "[REDACTED]"
)

var (
	passwordPattern   = regexp.MustCompile(`(?i)(password|pwd|pass)\s*=\s*[^;&\s'"]+`)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@[^/\s]+`)
)

// Query truncates query to MaxQueryLogLength and redacts any
// credential-shaped substring before it's safe to hand to a logger.
func Query(query string) string {
	if query == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(query, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	if len(sanitized) > MaxQueryLogLength {
		sanitized = sanitized[:MaxQueryLogLength] + "..."
	}
	return sanitized
}

// Truncate truncates s to maxLen, appending "..." when it does.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

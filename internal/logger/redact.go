package logger

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// Keys whose values are credentials or page text. Page text stays out of
// logs so translated documents never leak into shared log files.
var sensitiveKeys = map[string]bool{
	"authorization": true,
	"bearer":        true,
	"body":          true,
	"html":          true,
	"original":      true,
	"page_text":     true,
	"password":      true,
	"session":       true,
	"translated":    true,
}

var sensitiveKeyParts = []string{
	"api",
	"content",
	"input",
	"key",
	"output",
	"placeholder",
	"prompt",
	"secret",
	"text",
	"title",
	"token",
}

var sensitiveValues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsk-[A-Za-z0-9_-]{10,}\b`),
	regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{10,}\b`),
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]+=*\b`),
	regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|secret)\b\s*[:=]\s*\S+`),
}

// RedactAttr is a slog.ReplaceAttr function that hides credentials and page text.
func RedactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if sensitiveKey(a.Key) || sensitiveValue(a.Value) {
		return slog.String(a.Key, redacted)
	}
	return a
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func sensitiveValue(v slog.Value) bool {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindAny:
		s = fmt.Sprint(v.Any())
	default:
		return false
	}
	for _, re := range sensitiveValues {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

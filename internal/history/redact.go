// Package history persists redacted, retention-bounded audit records of every
// deployment run.
package history

import (
	"regexp"
)

const redactedPlaceholder = "[REDACTED]"

// Redaction patterns are a contract: run history is the operator's diagnostic
// record, so log lines must keep their shape while secret material is masked.
var (
	// user:pass@host credentials embedded in URLs
	urlCredentialsRe = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)([^/\s:@]+):([^/\s@]+)@`)

	// AWS-style access key IDs
	awsAccessKeyRe = regexp.MustCompile(`\b(?:AKIA|ASIA|AGPA|AIDA|AROA|ANPA)[0-9A-Z]{16}\b`)

	// GitHub personal access tokens, classic and fine-grained
	githubTokenRe = regexp.MustCompile(`\b(?:gh[pousr]_[A-Za-z0-9]{36,255}|github_pat_[A-Za-z0-9_]{22,255})\b`)

	// key: value / key=value pairs whose key names secret material
	secretPairRe = regexp.MustCompile(`(?i)([A-Za-z0-9_.-]*(?:password|passwd|token|secret|api[_-]?key)[A-Za-z0-9_.-]*)(\s*[:=]\s*)(\S+)`)
)

// RedactLine masks secret material in a single log line
func RedactLine(line string) string {
	line = urlCredentialsRe.ReplaceAllString(line, "${1}"+redactedPlaceholder+":"+redactedPlaceholder+"@")
	line = secretPairRe.ReplaceAllString(line, "${1}${2}"+redactedPlaceholder)
	line = awsAccessKeyRe.ReplaceAllString(line, redactedPlaceholder)
	line = githubTokenRe.ReplaceAllString(line, redactedPlaceholder)
	return line
}

// RedactLines masks secret material in every log line, returning a new slice
func RedactLines(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	redacted := make([]string, len(lines))
	for i, line := range lines {
		redacted[i] = RedactLine(line)
	}
	return redacted
}

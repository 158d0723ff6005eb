package security

import (
	"errors"
	"regexp"
	"strings"
	"sync"
)

var (
	// Token regex patterns compiled once using sync.Once for performance.
	gitlabTokenRegex    *regexp.Regexp
	githubTokenRegex    *regexp.Regexp
	bitbucketTokenRegex *regexp.Regexp
	bearerTokenRegex    *regexp.Regexp
	authHeaderRegex     *regexp.Regexp
	regexOnce           sync.Once
)

// compileRegexPatterns initializes all regex patterns once.
func compileRegexPatterns() {
	regexOnce.Do(func() {
		// GitLab personal access and runner tokens: glpat-/glrt- + 6+ chars.
		// Real tokens are 20+ chars, but we catch shorter ones for safety.
		gitlabTokenRegex = regexp.MustCompile(`gl(pat|rt)-[a-zA-Z0-9_-]{6,}`)

		// GitHub personal access tokens: ghp_/gho_/ghs_ + 20+ chars.
		githubTokenRegex = regexp.MustCompile(`gh[ops]_[a-zA-Z0-9]{20,}`)

		// Bitbucket app passwords: ATBB + 20+ chars.
		bitbucketTokenRegex = regexp.MustCompile(`ATBB[a-zA-Z0-9]{20,}`)

		// Generic bearer tokens: long base64-like strings (40-200 chars).
		bearerTokenRegex = regexp.MustCompile(`\b[A-Za-z0-9+/=]{40,200}\b`)

		// Authorization headers: "Authorization: Bearer <token>" or "Authorization: <token>".
		authHeaderRegex = regexp.MustCompile(`(?i)authorization:\s*(?:bearer|basic)\s+[a-zA-Z0-9+/=_-]{10,}`)
	})
}

// SanitizeString removes sensitive tokens from a string using compiled regex patterns.
// It detects and redacts GitLab tokens (glpat-*/glrt-*), GitHub tokens
// (ghp_/gho_/ghs_*), Bitbucket app passwords (ATBB*), authorization headers,
// and generic bearer tokens.
//
// Thread Safety: Safe for concurrent use after first call (regex patterns compiled via sync.Once).
func SanitizeString(s string) string {
	compileRegexPatterns()

	s = gitlabTokenRegex.ReplaceAllString(s, "[gitlab-token-redacted]")
	s = githubTokenRegex.ReplaceAllString(s, "[github-token-redacted]")
	s = bitbucketTokenRegex.ReplaceAllString(s, "[bitbucket-token-redacted]")
	s = authHeaderRegex.ReplaceAllString(s, "Authorization: [redacted]")

	// Replace generic bearer tokens last to avoid over-redaction.
	// Skip when a platform pattern already matched.
	if strings.Contains(s, "glpat-") || strings.Contains(s, "glrt-") ||
		strings.Contains(s, "ghp_") || strings.Contains(s, "gho_") ||
		strings.Contains(s, "ghs_") || strings.Contains(s, "ATBB") {
		return s
	}
	s = bearerTokenRegex.ReplaceAllString(s, "[token-redacted]")

	return s
}

// SanitizeError returns an error with [SanitizeString] applied to its
// message. Returns nil if err is nil. The original error chain is not
// preserved, so a token buried in a wrapped error cannot leak through.
func SanitizeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(SanitizeString(err.Error()))
}

// SanitizeMap redacts values whose keys match common sensitive names
// (token, password, secret, api_key, auth, credential, authorization).
// Non-sensitive string values are also passed through [SanitizeString].
// Returns nil if m is nil.
func SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	sensitiveKeys := []string{
		"token", "password", "secret", "api_key", "apikey",
		"auth", "credential", "authorization",
	}

	result := make(map[string]any, len(m))
	for k, v := range m {
		lowerKey := strings.ToLower(k)
		isSensitive := false
		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(lowerKey, sensitiveKey) {
				isSensitive = true
				break
			}
		}

		if isSensitive {
			result[k] = maskRedacted
		} else {
			if str, ok := v.(string); ok {
				result[k] = SanitizeString(str)
			} else {
				result[k] = v
			}
		}
	}

	return result
}

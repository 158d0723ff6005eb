package autopr

import (
	"github.com/ryanuber/go-glob"
)

const shortSHALen = 8

// SourceBranch derives the deterministic source branch for an automated
// PR. It is a pure function of (target, sha): repeated runs for the
// same commit converge on one branch, which is what makes PR creation
// idempotent.
func SourceBranch(target, sha string) string {
	short := sha
	if len(short) > shortSHALen {
		short = short[:shortSHALen]
	}
	return target + "-cml-pr-" + short
}

// ShortSHA returns the first 8 hex characters of sha.
func ShortSHA(sha string) string {
	if len(sha) > shortSHALen {
		return sha[:shortSHALen]
	}
	return sha
}

// matchAny reports whether path matches at least one glob pattern.
func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if glob.Glob(pattern, path) {
			return true
		}
	}
	return false
}

// intersect returns the changed paths covered by the glob set,
// preserving input order.
func intersect(changed, patterns []string) []string {
	var result []string
	for _, path := range changed {
		if matchAny(patterns, path) {
			result = append(result, path)
		}
	}
	return result
}

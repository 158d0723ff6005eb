// Package urlutil provides URL parsing utilities for extracting path components
// from git remote URLs.
//
// It handles three URL formats:
//   - HTTPS: https://github.com/owner/repo
//   - SSH colon: git@github.com:owner/repo
//   - SSH protocol: ssh://git@github.com/owner/repo
//
// The .git suffix should be removed by the caller before calling [ExtractPathComponents].
package urlutil

import "strings"

const (
	// minColonParts is the minimum number of parts expected when splitting SSH colon format URLs.
	// SSH colon format: git@host:path splits into ["git@host", "path"].
	minColonParts = 2
)

// ExtractPathComponents extracts the last N path components from a git remote URL.
// It handles multiple URL formats:
//   - HTTPS: https://github.com/owner/repo (expects .git suffix already removed)
//   - SSH colon: git@github.com:owner/repo (expects .git suffix already removed)
//   - SSH protocol: ssh://git@github.com/owner/repo (expects .git suffix already removed)
//
// The componentCount parameter specifies how many path components to extract.
// Returns empty string if the URL doesn't contain enough components.
//
// Examples:
//
//	ExtractPathComponents("git@github.com:owner/repo", 2) → "owner/repo"
//	ExtractPathComponents("https://gitlab.com/group/subgroup/project", 2) → "subgroup/project"
//	ExtractPathComponents("https://gitlab.com/group/subgroup/project", 3) → "group/subgroup/project"
func ExtractPathComponents(url string, componentCount int) string {
	// Handle ssh:// protocol format separately from git@ colon format
	if strings.HasPrefix(url, "ssh://git@") {
		parts := strings.Split(url, "/")
		if len(parts) >= componentCount {
			return strings.Join(parts[len(parts)-componentCount:], "/")
		}
		return ""
	}

	if strings.HasPrefix(url, "git@") {
		parts := strings.Split(url, ":")
		if len(parts) >= minColonParts {
			return parts[len(parts)-1]
		}
		return ""
	}

	// HTTPS format
	parts := strings.Split(url, "/")
	if len(parts) >= componentCount {
		return strings.Join(parts[len(parts)-componentCount:], "/")
	}
	return ""
}

// OwnerRepo extracts the trailing "owner/repo" slug from a git remote or
// web URL, trimming any .git suffix first. Returns "" when the URL does
// not carry at least two path components.
func OwnerRepo(url string) string {
	url = strings.TrimSuffix(strings.TrimSuffix(url, "/"), ".git")
	return ExtractPathComponents(url, minColonParts)
}

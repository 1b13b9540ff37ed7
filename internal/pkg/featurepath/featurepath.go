// Package featurepath computes the on-disk and git locations belonging to a feature slug.
package featurepath

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultBranchPattern is used when no pattern is configured
const DefaultBranchPattern = "feat/{id}-{slug}"

const (
	featuresDir  = "features"
	recordFile   = "phases.yaml"
	worktreesDir = ".trees"
)

// ValidateSlug rejects slugs that would escape the feature directory
func ValidateSlug(slug string) error {
	if strings.TrimSpace(slug) == "" {
		return fmt.Errorf("feature slug is required")
	}
	if slug == "." || slug == ".." || strings.ContainsAny(slug, `/\`) {
		return fmt.Errorf("invalid feature slug %q", slug)
	}
	return nil
}

// ExtractID returns the numeric prefix of slug ("0001" for "0001_web_frontend").
// A slug without a numeric prefix is returned whole.
func ExtractID(slug string) string {
	head, _, _ := strings.Cut(slug, "_")
	if head == "" {
		return slug
	}
	for _, r := range head {
		if r < '0' || r > '9' {
			return slug
		}
	}
	return head
}

// BranchName expands {id} and {slug} in pattern
func BranchName(pattern, slug string) string {
	if pattern == "" {
		pattern = DefaultBranchPattern
	}
	safe := RefSafe(slug)
	r := strings.NewReplacer("{slug}", safe, "{id}", RefSafe(ExtractID(slug)))
	return r.Replace(pattern)
}

// RefSafe normalizes s (NFKC) and replaces characters git refuses in ref names
func RefSafe(s string) string {
	s = norm.NFKC.String(s)

	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteRune('-')
		case strings.ContainsRune(" ~^:?*[\\", r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}

	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	out = strings.TrimSuffix(out, ".lock")
	return strings.Trim(out, "./-")
}

// WorktreePath returns <repo>/.trees/<slug>
func WorktreePath(repoDir, slug string) string {
	return filepath.Join(repoDir, worktreesDir, slug)
}

// FeatureDir returns <gbaDir>/features/<slug>
func FeatureDir(gbaDir, slug string) string {
	return filepath.Join(gbaDir, featuresDir, slug)
}

// RecordPath returns the phases.yaml location for slug
func RecordPath(gbaDir, slug string) string {
	return filepath.Join(FeatureDir(gbaDir, slug), recordFile)
}

// DesignSpecPath returns the design document location for slug
func DesignSpecPath(gbaDir, slug string) string {
	return filepath.Join(FeatureDir(gbaDir, slug), "specs", "design.md")
}

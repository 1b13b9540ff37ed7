package run

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

var (
	fixedCountPattern = regexp.MustCompile(`(?im)^\s*FIXED:\s*(\d+)\s*$`)
	verdictPattern    = regexp.MustCompile(`(?im)^\W*VERIFICATION:\s*(PASS|FAIL)`)
)

// ParseFixedCount reads the "FIXED: n" line a fix stage reports. Without one,
// every issue handed to the fix stage counts as fixed.
func ParseFixedCount(out string, issues int) int {
	m := fixedCountPattern.FindAllStringSubmatch(out, -1)
	if len(m) == 0 {
		return issues
	}
	n, err := strconv.Atoi(m[len(m)-1][1])
	if err != nil {
		return issues
	}
	if n > issues {
		return issues
	}
	return n
}

// VerificationPassed interprets a verify stage response. An explicit
// "VERIFICATION: PASS|FAIL" line decides; otherwise failure words only count
// when no success word is present.
func VerificationPassed(resp *output.AgentResponse) bool {
	if resp == nil || resp.IsError {
		return false
	}
	if m := verdictPattern.FindAllStringSubmatch(resp.Output, -1); len(m) > 0 {
		return strings.EqualFold(m[len(m)-1][1], "PASS")
	}
	lower := strings.ToLower(resp.Output)
	failed := strings.Contains(lower, "fail") || strings.Contains(lower, "error")
	succeeded := strings.Contains(lower, "pass") || strings.Contains(lower, "success")
	return !failed || succeeded
}

// ExtractPRURL returns the first GitHub pull request URL in out
func ExtractPRURL(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		idx := strings.Index(line, "https://github.com/")
		if idx < 0 {
			continue
		}
		candidate := line[idx:]
		if end := strings.IndexAny(candidate, " \t\r\"')"); end >= 0 {
			candidate = candidate[:end]
		}
		if strings.Contains(candidate, "/pull/") {
			return candidate, true
		}
	}
	return "", false
}

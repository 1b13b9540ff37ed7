package execution

import (
	"fmt"
	"strings"
)

// Severity of a review or verification finding
type Severity string

const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// String returns the string representation of the severity
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a severity, accepting the aliases agents commonly emit
func ParseSeverity(value string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	case "suggestion", "info", "note":
		return SeveritySuggestion, true
	default:
		return "", false
	}
}

// Issue is a single finding. Issues are transient and never persisted individually.
type Issue struct {
	Severity    Severity `json:"severity"`
	File        string   `json:"file"`
	Description string   `json:"description"`
}

// String renders the issue in the inline format
func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.File, i.Description)
}

// ParseIssues extracts issues from free-text review output.
//
// The block format is tried first:
//
//	- severity: error
//	  file: main.go
//	  description: missing error check
//
// and then the inline format, one issue per line:
//
//	- [warning] main.go: unused variable
func ParseIssues(output string) []Issue {
	if issues := parseBlockIssues(output); len(issues) > 0 {
		return issues
	}

	var issues []Issue
	for _, line := range strings.Split(output, "\n") {
		if issue, ok := parseInlineIssue(strings.TrimSpace(line)); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

func parseBlockIssues(output string) []Issue {
	var (
		issues      []Issue
		severity    Severity
		hasSeverity bool
		file        string
		description string
	)

	flush := func() {
		if hasSeverity && file != "" && description != "" {
			issues = append(issues, Issue{Severity: severity, File: file, Description: description})
		}
	}

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))

		switch {
		case strings.HasPrefix(trimmed, "severity:"):
			flush()
			severity, hasSeverity = ParseSeverity(strings.TrimPrefix(trimmed, "severity:"))
			file, description = "", ""
		case strings.HasPrefix(trimmed, "file:"):
			file = strings.TrimSpace(strings.TrimPrefix(trimmed, "file:"))
		case strings.HasPrefix(trimmed, "description:"):
			description = strings.TrimSpace(strings.TrimPrefix(trimmed, "description:"))
		}
	}
	flush()

	return issues
}

func parseInlineIssue(line string) (Issue, bool) {
	content, ok := strings.CutPrefix(line, "-")
	if !ok {
		return Issue{}, false
	}
	content, ok = strings.CutPrefix(strings.TrimSpace(content), "[")
	if !ok {
		return Issue{}, false
	}
	sevText, rest, ok := strings.Cut(content, "]")
	if !ok {
		return Issue{}, false
	}
	severity, ok := ParseSeverity(sevText)
	if !ok {
		return Issue{}, false
	}
	file, description, ok := strings.Cut(strings.TrimSpace(rest), ":")
	if !ok {
		return Issue{}, false
	}
	file = strings.TrimSpace(file)
	description = strings.TrimSpace(description)
	if file == "" || description == "" {
		return Issue{}, false
	}
	return Issue{Severity: severity, File: file, Description: description}, true
}

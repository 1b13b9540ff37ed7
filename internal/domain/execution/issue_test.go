package execution

import (
	"testing"
)

func TestParseIssues_BlockFormat(t *testing.T) {
	output := `Review summary:

- severity: error
  file: internal/run/loop.go
  description: missing error handling on commit
- severity: warn
  file: cmd/main.go
  description: unused flag
`
	issues := ParseIssues(output)
	if len(issues) != 2 {
		t.Fatalf("Expected 2 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].Severity != SeverityError || issues[0].File != "internal/run/loop.go" {
		t.Errorf("Unexpected first issue: %+v", issues[0])
	}
	if issues[0].Description != "missing error handling on commit" {
		t.Errorf("Unexpected description: %q", issues[0].Description)
	}
	if issues[1].Severity != SeverityWarning {
		t.Errorf("Expected warn alias to map to warning, got %s", issues[1].Severity)
	}
}

func TestParseIssues_InlineFormat(t *testing.T) {
	output := `Found the following:
- [error] main.go: nil dereference
- [note] README.md: typo in heading
- not an issue line
- [bogus] x.go: ignored
`
	issues := ParseIssues(output)
	if len(issues) != 2 {
		t.Fatalf("Expected 2 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].Severity != SeverityError || issues[0].File != "main.go" || issues[0].Description != "nil dereference" {
		t.Errorf("Unexpected first issue: %+v", issues[0])
	}
	if issues[1].Severity != SeveritySuggestion {
		t.Errorf("Expected note alias to map to suggestion, got %s", issues[1].Severity)
	}
}

func TestParseIssues_NoIssues(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"empty", ""},
		{"clean review", "No issues found. LGTM."},
		{"incomplete block", "- severity: error\n  file: a.go\n"},
		{"inline without description", "- [error] a.go:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if issues := ParseIssues(tt.output); len(issues) != 0 {
				t.Errorf("Expected no issues, got %+v", issues)
			}
		})
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input string
		want  Severity
		ok    bool
	}{
		{"error", SeverityError, true},
		{"ERROR", SeverityError, true},
		{"warning", SeverityWarning, true},
		{"warn", SeverityWarning, true},
		{"suggestion", SeveritySuggestion, true},
		{"info", SeveritySuggestion, true},
		{" note ", SeveritySuggestion, true},
		{"critical", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseSeverity(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseSeverity(%q) = (%s, %v), want (%s, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

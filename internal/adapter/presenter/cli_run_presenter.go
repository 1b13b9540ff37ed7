package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/YoshitsuguKoike/gba/internal/application/dto"
	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

const timeLayout = "2006-01-02 15:04:05"

// CLIRunPresenter implements output.EventPresenter for terminal output
type CLIRunPresenter struct {
	output  io.Writer
	verbose bool // print agent output as it arrives
}

// NewCLIRunPresenter creates a new CLI presenter. verbose echoes coding output.
func NewCLIRunPresenter(output io.Writer, verbose bool) *CLIRunPresenter {
	return &CLIRunPresenter{output: output, verbose: verbose}
}

// PresentSuccess presents a successful result
func (p *CLIRunPresenter) PresentSuccess(message string, data interface{}) error {
	if message != "" {
		fmt.Fprintf(p.output, "✓ %s\n", message)
	}

	switch v := data.(type) {
	case nil:
	case *dto.RunFeatureOutput:
		p.presentRunOutput(v)
	case *dto.FeatureStatusDTO:
		p.presentStatus(v)
	case []output.RunSummary:
		p.presentRuns(v)
	case []output.JournalEntry:
		p.presentEntries(v)
	case *dto.RunEventsDTO:
		p.presentEntries(v.Events)
		p.presentArtifacts(v.Artifacts)
	case *dto.DoctorReport:
		p.presentDoctor(v)
	default:
		fmt.Fprintf(p.output, "%+v\n", data)
	}
	return nil
}

// PresentError presents an error
func (p *CLIRunPresenter) PresentError(err error) error {
	fmt.Fprintf(p.output, "✗ Error: %v\n", err)
	return err
}

// PresentProgress presents progress information
func (p *CLIRunPresenter) PresentProgress(message string, progress int, total int) error {
	if total <= 0 {
		fmt.Fprintf(p.output, "%s\n", message)
		return nil
	}
	if progress > total {
		progress = total
	}
	bar := strings.Repeat("█", progress) + strings.Repeat("░", total-progress)
	fmt.Fprintf(p.output, "%s [%s] %d/%d\n", message, bar, progress, total)
	return nil
}

// PresentEvent presents one run event
func (p *CLIRunPresenter) PresentEvent(event execution.Event) error {
	switch e := event.(type) {
	case execution.StartedEvent:
		mode := "starting"
		if e.Resume {
			mode = "resuming"
		}
		fmt.Fprintf(p.output, "▶ %s %q (%d phases)\n", mode, e.Feature, e.TotalPhases)
	case execution.PhaseStartedEvent:
		fmt.Fprintf(p.output, "\n── Phase %d: %s\n", e.Index+1, e.Name)
	case execution.CodingOutputEvent:
		if p.verbose {
			fmt.Fprintf(p.output, "%s\n", strings.TrimRight(e.Text, "\n"))
		}
	case execution.HookResultEvent:
		mark := "✓"
		if !e.Passed {
			mark = "✗"
		}
		fmt.Fprintf(p.output, "  %s hook %s (attempt %d)\n", mark, e.Hook, e.Attempt+1)
	case execution.PhaseCommittedEvent:
		fmt.Fprintf(p.output, "  ✓ phase %d committed %s\n", e.Index+1, e.Commit)
	case execution.ReviewStartedEvent:
		fmt.Fprintf(p.output, "\n── Review\n")
	case execution.ReviewCompletedEvent:
		fmt.Fprintf(p.output, "  issues found: %d, fixed: %d\n", e.IssuesFound, e.IssuesFixed)
		for _, issue := range e.Issues {
			fmt.Fprintf(p.output, "  - %s\n", issue)
		}
	case execution.VerificationStartedEvent:
		fmt.Fprintf(p.output, "\n── Verification\n")
	case execution.VerificationCompletedEvent:
		if e.Passed {
			fmt.Fprintf(p.output, "  ✓ verification passed\n")
		} else {
			fmt.Fprintf(p.output, "  ✗ verification failed\n")
		}
	case execution.PrCreatedEvent:
		fmt.Fprintf(p.output, "\n✓ Pull request: %s\n", e.URL)
	case execution.FinishedEvent:
		fmt.Fprintf(p.output, "✓ Finished in %d turns\n", e.TotalTurns)
	case execution.FailedEvent:
		if e.Err != nil {
			fmt.Fprintf(p.output, "✗ Failed: %v\n", e.Err)
		} else {
			fmt.Fprintf(p.output, "✗ Failed\n")
		}
	default:
		fmt.Fprintf(p.output, "%s\n", event.Kind())
	}
	return nil
}

func (p *CLIRunPresenter) presentRunOutput(out *dto.RunFeatureOutput) {
	fmt.Fprintf(p.output, "Run: %s\n", out.RunID)
	fmt.Fprintf(p.output, "Feature: %s\n", out.Slug)
	fmt.Fprintf(p.output, "Status: %s\n", out.Status)
	fmt.Fprintf(p.output, "Turns: %d\n", out.TotalTurns)
	if out.PR != "" {
		fmt.Fprintf(p.output, "PR: %s\n", out.PR)
	}
	if out.ErrorCode != "" {
		fmt.Fprintf(p.output, "Error: %s\n", out.ErrorMsg)
	}
}

func (p *CLIRunPresenter) presentStatus(st *dto.FeatureStatusDTO) {
	fmt.Fprintf(p.output, "Feature: %s (%s)\n", st.Feature, st.Slug)
	fmt.Fprintf(p.output, "Status: %s\n", st.Status)
	fmt.Fprintf(p.output, "Total turns: %d\n", st.TotalTurns)

	if len(st.Phases) > 0 {
		fmt.Fprintf(p.output, "\nPhases:\n")
		for _, ph := range st.Phases {
			line := fmt.Sprintf("  %d. %-24s %-12s turns=%d", ph.Index, ph.Name, ph.Status, ph.Turns)
			if ph.Commit != "" {
				line += " commit=" + ph.Commit
			}
			fmt.Fprintln(p.output, line)
		}
	}

	fmt.Fprintf(p.output, "\nReview: %d turns, %d found, %d fixed\n", st.ReviewTurns, st.IssuesFound, st.IssuesFixed)
	switch {
	case !st.VerificationRan:
		fmt.Fprintf(p.output, "Verification: not run\n")
	case st.VerificationPass:
		fmt.Fprintf(p.output, "Verification: passed\n")
	default:
		fmt.Fprintf(p.output, "Verification: failed\n")
	}
	if st.PR != "" {
		fmt.Fprintf(p.output, "PR: %s\n", st.PR)
	}
}

func (p *CLIRunPresenter) presentRuns(runs []output.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintf(p.output, "No runs recorded\n")
		return
	}
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Local().Format(timeLayout)
		}
		fmt.Fprintf(p.output, "%s  %-24s %-12s %s → %s\n",
			r.RunID, r.Slug, r.Status, r.StartedAt.Local().Format(timeLayout), finished)
	}
	fmt.Fprintf(p.output, "\nTotal: %d runs\n", len(runs))
}

func (p *CLIRunPresenter) presentEntries(entries []output.JournalEntry) {
	if len(entries) == 0 {
		fmt.Fprintf(p.output, "No events recorded\n")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(p.output, "%4d  %s  %-24s %s\n",
			e.Seq, e.CreatedAt.Local().Format(timeLayout), e.Kind, string(e.Payload))
	}
}

func (p *CLIRunPresenter) presentArtifacts(artifacts []dto.ArtifactDTO) {
	if len(artifacts) == 0 {
		return
	}
	fmt.Fprintf(p.output, "\nArtifacts:\n")
	for _, a := range artifacts {
		fmt.Fprintf(p.output, "  %s  %-12s %-32s %d bytes\n", a.ID, a.Type, a.Name, a.Size)
	}
	fmt.Fprintf(p.output, "\nShow one with: gba events --artifact <id>\n")
}

func (p *CLIRunPresenter) presentDoctor(r *dto.DoctorReport) {
	for _, c := range r.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		fmt.Fprintf(p.output, "%s %-12s %s\n", mark, c.Name, c.Detail)
	}
}

var _ output.EventPresenter = (*CLIRunPresenter)(nil)

package execution

import (
	"errors"
	"fmt"
)

// ExecutionRecord is the durable plan and run progress of one feature.
// It is created by the planner with Execution == nil and updated by the
// run controller after every completed transition.
type ExecutionRecord struct {
	Feature      string           `yaml:"feature"`
	Phases       []Phase          `yaml:"phases"`
	Verification VerificationPlan `yaml:"verification"`
	Execution    *Execution       `yaml:"execution,omitempty"`
}

// Phase is one planned unit of code change
type Phase struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Tasks       []string     `yaml:"tasks"`
	Result      *PhaseResult `yaml:"result,omitempty"`
}

// PhaseResult records how a phase ended
type PhaseResult struct {
	Status Status `yaml:"status"`
	Turns  int    `yaml:"turns"`
	Commit string `yaml:"commit,omitempty"`
}

// VerificationPlan holds the acceptance criteria of the feature
type VerificationPlan struct {
	Criteria     []string `yaml:"criteria"`
	TestCommands []string `yaml:"testCommands"`
}

// IsEmpty reports whether there is nothing to verify
func (p VerificationPlan) IsEmpty() bool {
	return len(p.Criteria) == 0 && len(p.TestCommands) == 0
}

// Execution is the run summary
type Execution struct {
	Status       Status             `yaml:"status"`
	TotalTurns   int                `yaml:"totalTurns"`
	Review       ReviewResult       `yaml:"review"`
	Verification VerificationResult `yaml:"verification"`
	PR           string             `yaml:"pr,omitempty"`
}

// ReviewResult is the cumulative tally of the review loop
type ReviewResult struct {
	Turns       int `yaml:"turns"`
	IssuesFound int `yaml:"issuesFound"`
	IssuesFixed int `yaml:"issuesFixed"`
}

// Record adds one review iteration. fixed is clamped so that
// IssuesFixed never exceeds IssuesFound.
func (r *ReviewResult) Record(found, fixed int) {
	if found < 0 {
		found = 0
	}
	if fixed < 0 {
		fixed = 0
	}
	r.IssuesFound += found
	r.IssuesFixed += fixed
	if r.IssuesFixed > r.IssuesFound {
		r.IssuesFixed = r.IssuesFound
	}
}

// Unresolved returns the number of issues the fix stage did not resolve
func (r ReviewResult) Unresolved() int {
	return r.IssuesFound - r.IssuesFixed
}

// VerificationResult is the outcome of the verification loop
type VerificationResult struct {
	Turns  int  `yaml:"turns"`
	Passed bool `yaml:"passed"`
}

// CompletedPhase names a phase that a resumed run must not redo
type CompletedPhase struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Commit string `json:"commit"`
}

// IsCompleted reports whether the phase has a completed result
func (p *Phase) IsCompleted() bool {
	return p.Result != nil && p.Result.Status == StatusCompleted
}

// PhaseStatus returns the phase status, pending when there is no result yet
func (p *Phase) PhaseStatus() Status {
	if p.Result == nil || p.Result.Status == "" {
		return StatusPending
	}
	return p.Result.Status
}

// CompletedPhases lists completed phases in declaration order with 1-based indexes
func (r *ExecutionRecord) CompletedPhases() []CompletedPhase {
	var done []CompletedPhase
	for i := range r.Phases {
		p := &r.Phases[i]
		if !p.IsCompleted() {
			continue
		}
		commit := p.Result.Commit
		if commit == "" {
			commit = "unknown"
		}
		done = append(done, CompletedPhase{Index: i + 1, Name: p.Name, Commit: commit})
	}
	return done
}

// IsResume reports whether at least one phase was completed by a previous run
func (r *ExecutionRecord) IsResume() bool {
	for i := range r.Phases {
		if r.Phases[i].IsCompleted() {
			return true
		}
	}
	return false
}

// Begin marks the run as in progress, creating the summary on first start.
// A rerun after a failure keeps the prior review and verification tallies.
func (r *ExecutionRecord) Begin() {
	if r.Execution == nil {
		r.Execution = &Execution{Status: StatusInProgress}
		return
	}
	r.Execution.Status = StatusInProgress
	r.Execution.PR = ""
}

// PhaseTurns returns the sum of turns across all phase results
func (r *ExecutionRecord) PhaseTurns() int {
	total := 0
	for i := range r.Phases {
		if r.Phases[i].Result != nil {
			total += r.Phases[i].Result.Turns
		}
	}
	return total
}

// RecomputeTotalTurns derives Execution.TotalTurns from the phase, review and
// verification turns so the sum holds for every persisted state
func (r *ExecutionRecord) RecomputeTotalTurns() {
	if r.Execution == nil {
		return
	}
	r.Execution.TotalTurns = r.PhaseTurns() + r.Execution.Review.Turns + r.Execution.Verification.Turns
}

// CompletePhase records a committed phase
func (r *ExecutionRecord) CompletePhase(index, turns int, commit string) error {
	if index < 0 || index >= len(r.Phases) {
		return fmt.Errorf("phase index %d out of range", index)
	}
	p := &r.Phases[index]
	if p.IsCompleted() {
		return fmt.Errorf("phase %d (%s) is already completed", index+1, p.Name)
	}
	p.Result = &PhaseResult{Status: StatusCompleted, Turns: turns, Commit: commit}
	return nil
}

// FailPhase records a failed phase. Completed phases are left untouched.
func (r *ExecutionRecord) FailPhase(index, turns int) error {
	if index < 0 || index >= len(r.Phases) {
		return fmt.Errorf("phase index %d out of range", index)
	}
	p := &r.Phases[index]
	if p.IsCompleted() {
		return fmt.Errorf("phase %d (%s) is already completed", index+1, p.Name)
	}
	p.Result = &PhaseResult{Status: StatusFailed, Turns: turns}
	return nil
}

// Finish sets the final run status
func (r *ExecutionRecord) Finish(status Status) {
	if r.Execution == nil {
		r.Execution = &Execution{}
	}
	r.Execution.Status = status
	r.RecomputeTotalTurns()
}

// Validate checks the record is schema-valid
func (r *ExecutionRecord) Validate() error {
	var errs []error
	if r.Feature == "" {
		errs = append(errs, errors.New("feature description is empty"))
	}
	for i := range r.Phases {
		p := &r.Phases[i]
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("phase %d has no name", i+1))
		}
		if p.Result == nil {
			continue
		}
		if p.Result.Status != "" && !p.Result.Status.IsValid() {
			errs = append(errs, fmt.Errorf("phase %d has unknown status %q", i+1, p.Result.Status))
		}
		if p.Result.Turns < 0 {
			errs = append(errs, fmt.Errorf("phase %d has negative turns", i+1))
		}
		if p.Result.Commit != "" && p.Result.Status != StatusCompleted {
			errs = append(errs, fmt.Errorf("phase %d has a commit but status %s", i+1, p.Result.Status))
		}
	}
	if e := r.Execution; e != nil {
		if !e.Status.IsValid() {
			errs = append(errs, fmt.Errorf("execution has unknown status %q", e.Status))
		}
		if e.Review.IssuesFixed > e.Review.IssuesFound {
			errs = append(errs, fmt.Errorf("review fixed %d issues but found only %d", e.Review.IssuesFixed, e.Review.IssuesFound))
		}
		if e.TotalTurns < 0 || e.Review.Turns < 0 || e.Verification.Turns < 0 {
			errs = append(errs, errors.New("execution has negative turns"))
		}
		if e.PR != "" && e.Status != StatusCompleted {
			errs = append(errs, fmt.Errorf("execution has a PR but status %s", e.Status))
		}
	}
	return errors.Join(errs...)
}

package execution

// EventKind discriminates run events
type EventKind string

const (
	EventStarted               EventKind = "started"
	EventPhaseStarted          EventKind = "phase_started"
	EventCodingOutput          EventKind = "coding_output"
	EventHookResult            EventKind = "hook_result"
	EventPhaseCommitted        EventKind = "phase_committed"
	EventReviewStarted         EventKind = "review_started"
	EventReviewCompleted       EventKind = "review_completed"
	EventVerificationStarted   EventKind = "verification_started"
	EventVerificationCompleted EventKind = "verification_completed"
	EventPrCreated             EventKind = "pr_created"
	EventFinished              EventKind = "finished"
	EventFailed                EventKind = "failed"
)

// Event is one entry of the progress stream a run emits to its caller
type Event interface {
	Kind() EventKind
}

// IsTerminal reports whether no event may follow e
func IsTerminal(e Event) bool {
	k := e.Kind()
	return k == EventFinished || k == EventFailed
}

type StartedEvent struct {
	Feature     string `json:"feature"`
	TotalPhases int    `json:"total_phases"`
	Resume      bool   `json:"resume"`
}

type PhaseStartedEvent struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type CodingOutputEvent struct {
	Phase int    `json:"phase"`
	Text  string `json:"text"`
}

type HookResultEvent struct {
	Phase   int    `json:"phase"`
	Hook    string `json:"hook"`
	Passed  bool   `json:"passed"`
	Attempt int    `json:"attempt"`
}

type PhaseCommittedEvent struct {
	Index  int    `json:"index"`
	Commit string `json:"commit"`
}

type ReviewStartedEvent struct{}

// ReviewCompletedEvent carries the issues still open after the last iteration
type ReviewCompletedEvent struct {
	Issues      []Issue `json:"issues"`
	IssuesFound int     `json:"issues_found"`
	IssuesFixed int     `json:"issues_fixed"`
}

type VerificationStartedEvent struct{}

type VerificationCompletedEvent struct {
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

type PrCreatedEvent struct {
	URL string `json:"url"`
}

type FinishedEvent struct {
	TotalTurns int `json:"total_turns"`
}

// FailedEvent ends the stream of a halted run
type FailedEvent struct {
	Err *ExecutionError `json:"-"`
}

func (StartedEvent) Kind() EventKind               { return EventStarted }
func (PhaseStartedEvent) Kind() EventKind          { return EventPhaseStarted }
func (CodingOutputEvent) Kind() EventKind          { return EventCodingOutput }
func (HookResultEvent) Kind() EventKind            { return EventHookResult }
func (PhaseCommittedEvent) Kind() EventKind        { return EventPhaseCommitted }
func (ReviewStartedEvent) Kind() EventKind         { return EventReviewStarted }
func (ReviewCompletedEvent) Kind() EventKind       { return EventReviewCompleted }
func (VerificationStartedEvent) Kind() EventKind   { return EventVerificationStarted }
func (VerificationCompletedEvent) Kind() EventKind { return EventVerificationCompleted }
func (PrCreatedEvent) Kind() EventKind             { return EventPrCreated }
func (FinishedEvent) Kind() EventKind              { return EventFinished }
func (FailedEvent) Kind() EventKind                { return EventFailed }

type failurePayload struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   string                 `json:"cause,omitempty"`
}

// Payload returns a serialisable form of the failure
func (e FailedEvent) Payload() interface{} {
	if e.Err == nil {
		return failurePayload{}
	}
	p := failurePayload{Code: e.Err.Code, Message: e.Err.Message, Details: e.Err.Details}
	if e.Err.Cause != nil {
		p.Cause = e.Err.Cause.Error()
	}
	return p
}

package execution

// LoopDecision is what a bounded check/fix loop does next
type LoopDecision int

const (
	// LoopDone means the last check passed
	LoopDone LoopDecision = iota
	// LoopFix means the check failed and a fix attempt is still allowed
	LoopFix
	// LoopExhausted means the check failed and no fix attempts remain
	LoopExhausted
)

// String returns a readable name for the decision
func (d LoopDecision) String() string {
	switch d {
	case LoopDone:
		return "done"
	case LoopFix:
		return "fix"
	case LoopExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// BoundedLoop is the state of a check/fix cycle. Attempt counts the fix
// attempts already made. With Max = n the cycle performs at most n fixes
// and n+1 checks.
type BoundedLoop struct {
	Attempt int
	Max     int
}

// NewBoundedLoop creates a loop allowing max fix attempts
func NewBoundedLoop(max int) BoundedLoop {
	if max < 0 {
		max = 0
	}
	return BoundedLoop{Max: max}
}

// Next decides the transition after a check
func (l BoundedLoop) Next(passed bool) LoopDecision {
	if passed {
		return LoopDone
	}
	if l.Attempt < l.Max {
		return LoopFix
	}
	return LoopExhausted
}

// Advance returns the state after one fix attempt
func (l BoundedLoop) Advance() BoundedLoop {
	l.Attempt++
	return l
}

// Remaining returns how many fix attempts are left
func (l BoundedLoop) Remaining() int {
	return l.Max - l.Attempt
}

package execution

import (
	"testing"
)

func TestBoundedLoop_Next(t *testing.T) {
	tests := []struct {
		name     string
		loop     BoundedLoop
		passed   bool
		expected LoopDecision
	}{
		{"passed on first check", BoundedLoop{Attempt: 0, Max: 3}, true, LoopDone},
		{"failed with attempts left", BoundedLoop{Attempt: 0, Max: 3}, false, LoopFix},
		{"failed on last allowed fix", BoundedLoop{Attempt: 2, Max: 3}, false, LoopFix},
		{"failed at bound", BoundedLoop{Attempt: 3, Max: 3}, false, LoopExhausted},
		{"passed at bound", BoundedLoop{Attempt: 3, Max: 3}, true, LoopDone},
		{"zero budget", BoundedLoop{Attempt: 0, Max: 0}, false, LoopExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loop.Next(tt.passed); got != tt.expected {
				t.Errorf("Next(%v) = %s, want %s", tt.passed, got, tt.expected)
			}
		})
	}
}

// TestBoundedLoop_FixCount drives an always-failing check and counts fixes
func TestBoundedLoop_FixCount(t *testing.T) {
	for max := 0; max <= 6; max++ {
		loop := NewBoundedLoop(max)
		fixes, checks := 0, 0
		for {
			checks++
			decision := loop.Next(false)
			if decision == LoopExhausted {
				break
			}
			fixes++
			loop = loop.Advance()
		}
		if fixes != max {
			t.Errorf("max=%d: expected %d fixes, got %d", max, max, fixes)
		}
		if checks != max+1 {
			t.Errorf("max=%d: expected %d checks, got %d", max, max+1, checks)
		}
	}
}

func TestNewBoundedLoop_NegativeMax(t *testing.T) {
	loop := NewBoundedLoop(-2)
	if loop.Max != 0 {
		t.Errorf("Expected negative max to clamp to 0, got %d", loop.Max)
	}
	if loop.Remaining() != 0 {
		t.Errorf("Expected 0 remaining, got %d", loop.Remaining())
	}
}

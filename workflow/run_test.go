package workflow

import (
	"errors"
	"testing"

	"github.com/randalmurphal/shipflow/issue"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		phase   Phase
		event   Event
		want    Phase
		wantErr bool
	}{
		{"planned builds", PhasePlanned, EventBuild, PhaseBuilt, false},
		{"built starts review", PhaseBuilt, EventStartReview, PhaseReviewing, false},
		{"reviewing self-loops", PhaseReviewing, EventRetryReview, PhaseReviewing, false},
		{"reviewing approves", PhaseReviewing, EventApprove, PhaseReviewed, false},
		{"reviewed ships", PhaseReviewed, EventShip, PhaseShipped, false},
		{"fail from planned", PhasePlanned, EventFail, PhaseFailed, false},
		{"fail from reviewing", PhaseReviewing, EventFail, PhaseFailed, false},
		{"cancel from built", PhaseBuilt, EventCancel, PhaseFailed, false},
		{"no skipping review", PhaseBuilt, EventShip, "", true},
		{"no building twice", PhaseBuilt, EventBuild, "", true},
		{"shipped is terminal", PhaseShipped, EventFail, "", true},
		{"failed is terminal", PhaseFailed, EventBuild, "", true},
		{"planned cannot approve", PhasePlanned, EventApprove, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.phase, tt.event)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transition: %v", err)
			}
			if got != tt.want {
				t.Errorf("Transition(%s, %s) = %s, want %s", tt.phase, tt.event, got, tt.want)
			}
		})
	}
}

func TestPhaseTerminal(t *testing.T) {
	for _, p := range []Phase{PhasePlanned, PhaseBuilt, PhaseReviewing, PhaseReviewed} {
		if p.Terminal() {
			t.Errorf("%s should not be terminal", p)
		}
	}
	for _, p := range []Phase{PhaseShipped, PhaseFailed} {
		if !p.Terminal() {
			t.Errorf("%s should be terminal", p)
		}
	}
}

func TestNewRun(t *testing.T) {
	iss := &issue.Issue{ID: "42", Source: issue.SourceGitHub, Title: "fix it"}
	run, err := NewRun(iss)
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if run.Phase != PhasePlanned {
		t.Errorf("new run phase = %s", run.Phase)
	}
	if len(run.ID) <= len("run-") {
		t.Errorf("run ID too short: %q", run.ID)
	}

	other, err := NewRun(iss)
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if other.ID == run.ID {
		t.Error("run IDs should be unique")
	}
}

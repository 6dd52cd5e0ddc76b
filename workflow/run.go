package workflow

import (
	"errors"
	"fmt"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/randalmurphal/shipflow/issue"
	"github.com/randalmurphal/shipflow/provider"
)

// Phase is a stage in a run's lifecycle.
type Phase string

const (
	PhasePlanned   Phase = "planned"
	PhaseBuilt     Phase = "built"
	PhaseReviewing Phase = "reviewing"
	PhaseReviewed  Phase = "reviewed"
	PhaseShipped   Phase = "shipped"
	PhaseFailed    Phase = "failed"
)

// Event drives a phase transition.
type Event string

const (
	EventBuild       Event = "build"
	EventStartReview Event = "start_review"
	EventRetryReview Event = "retry_review"
	EventApprove     Event = "approve"
	EventShip        Event = "ship"
	EventFail        Event = "fail"
	EventCancel      Event = "cancel"
)

// ErrInvalidTransition is returned when an event is not legal in the
// current phase.
var ErrInvalidTransition = errors.New("invalid phase transition")

var transitions = map[Phase]map[Event]Phase{
	PhasePlanned: {
		EventBuild: PhaseBuilt,
	},
	PhaseBuilt: {
		EventStartReview: PhaseReviewing,
	},
	PhaseReviewing: {
		EventRetryReview: PhaseReviewing,
		EventApprove:     PhaseReviewed,
	},
	PhaseReviewed: {
		EventShip: PhaseShipped,
	},
}

// Transition returns the phase reached by applying event in phase. It is
// pure; all side effects live in the Machine. EventFail and EventCancel
// are legal from every non-terminal phase.
func Transition(phase Phase, event Event) (Phase, error) {
	if event == EventFail || event == EventCancel {
		if phase.Terminal() {
			return "", fmt.Errorf("%w: %s in terminal phase %s", ErrInvalidTransition, event, phase)
		}
		return PhaseFailed, nil
	}
	next, ok := transitions[phase][event]
	if !ok {
		return "", fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, event, phase)
	}
	return next, nil
}

// Terminal reports whether the phase admits no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseShipped || p == PhaseFailed
}

// Run is the persisted record of a single workflow execution.
type Run struct {
	ID             string               `json:"id"`
	Issue          *issue.Issue         `json:"issue"`
	Phase          Phase                `json:"phase"`
	WorktreePath   string               `json:"worktreePath,omitempty"`
	Branch         string               `json:"branch,omitempty"`
	Ports          []int                `json:"ports,omitempty"`
	ReviewAttempts int                  `json:"reviewAttempts,omitempty"`
	Blockers       []string             `json:"blockers,omitempty"`
	Review         *provider.CodeReview `json:"review,omitempty"`
	AgentSession   string               `json:"agentSession,omitempty"`
	LastError      string               `json:"lastError,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// NewRun creates a run in the planned phase for the given issue.
func NewRun(iss *issue.Issue) (*Run, error) {
	suffix, err := nanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate run ID: %w", err)
	}
	now := time.Now().UTC()
	return &Run{
		ID:        "run-" + suffix,
		Issue:     iss,
		Phase:     PhasePlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// advance applies event to the run's phase and bumps UpdatedAt.
func (r *Run) advance(event Event) error {
	next, err := Transition(r.Phase, event)
	if err != nil {
		return err
	}
	r.Phase = next
	r.UpdatedAt = time.Now().UTC()
	return nil
}

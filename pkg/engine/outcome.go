package engine

import (
	"fmt"
)

// State classifies how a single feature fared.
type State int

const (
	StateOK State = iota
	StateSkipped
	StateFailed
)

var stateNames = [...]string{"ok", "skipped", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("engine: unknown outcome state %q", b)
}

// Outcome is the result of dispatching one feature.
type Outcome struct {
	FeatureID string `json:"feature_id"`
	Kind      string `json:"kind"`
	State     State  `json:"state"`
	Reason    string `json:"reason,omitempty"`
}

// Line renders the outcome as a run log entry.
func (o Outcome) Line() string {
	switch o.State {
	case StateFailed:
		return fmt.Sprintf("Error executing feature %s: %s", o.FeatureID, o.Reason)
	case StateSkipped:
		return fmt.Sprintf("Skipped %s (%s)", o.FeatureID, o.Reason)
	default:
		return fmt.Sprintf("Executed %s %s", o.Kind, o.FeatureID)
	}
}

// Status is the overall classification of a run.
type Status string

const (
	StatusSuccess             Status = "success"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusError               Status = "error"
)

// Classify folds per-feature outcomes into a run status: success when every
// feature is ok, completed_with_errors otherwise.
func Classify(outcomes []Outcome) Status {
	for _, o := range outcomes {
		if o.State != StateOK {
			return StatusCompletedWithErrors
		}
	}
	return StatusSuccess
}

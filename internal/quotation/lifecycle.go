package quotation

import (
	"fmt"

	"github.com/quotient-erp/quotient/internal/shared"
)

// Action enumerates lifecycle transitions.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionClose   Action = "close"
)

// Transition applies a lifecycle action to the current status and returns
// the new status. Transitions are one-directional and nothing leaves closed.
func Transition(current Status, action Action) (Status, error) {
	if current == StatusClosed {
		return current, fmt.Errorf("%s is closed: %w", action, shared.ErrDocumentImmutable)
	}
	switch action {
	case ActionSubmit:
		if current != StatusDraft {
			return current, invalid(current, action)
		}
		return StatusPending, nil
	case ActionApprove:
		if current == StatusApproved {
			return current, invalid(current, action)
		}
		return StatusApproved, nil
	case ActionReject:
		if current != StatusPending {
			return current, invalid(current, action)
		}
		return StatusRejected, nil
	case ActionClose:
		if current == StatusDraft {
			return current, invalid(current, action)
		}
		return StatusClosed, nil
	}
	return current, fmt.Errorf("unknown action %q: %w", action, shared.ErrInvalidTransition)
}

// EnsureMutable rejects mutations on closed quotations.
func EnsureMutable(s Status) error {
	if s == StatusClosed {
		return shared.ErrDocumentImmutable
	}
	return nil
}

func invalid(current Status, action Action) error {
	return fmt.Errorf("cannot %s a %s quotation: %w", action, current, shared.ErrInvalidTransition)
}

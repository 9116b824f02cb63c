package aa

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a transition is attempted while another
	// operation is still in flight on the same journey.
	ErrBusy = errors.New("an operation is already in progress")

	// ErrCancelled is returned by an in-flight operation that was superseded
	// by CancelJourney; teardown has already run when it is returned.
	ErrCancelled = errors.New("journey cancelled")
)

// PreconditionError reports an operation invoked out of sequence or with
// inputs that violate the current step's requirements. It is raised
// synchronously, before any SDK call, and never mutates journey state; it is
// deliberately kept out of JourneyState.Error so retry flows don't display it.
type PreconditionError struct {
	Op     string
	Step   Step   // step the journey was on
	Want   Step   // step the operation requires
	Reason string // set for input violations within the right step
}

func (e *PreconditionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s requires step %s, journey is at %s", e.Op, e.Want, e.Step)
}

// IsPrecondition reports whether err is a precondition violation.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

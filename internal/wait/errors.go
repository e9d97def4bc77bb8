package wait

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches every TimeoutError via errors.Is.
var ErrTimeout = errors.New("wait timed out")

// TimeoutError names the handle still failing when the wait budget ran out.
type TimeoutError struct {
	Handle    string
	Condition string
	Timeout   time.Duration
	Mode      Mode
	// LastErr is the most recent driver error seen for Handle, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("element %s was not %s within %s (%s wait)", e.Handle, e.Condition, e.Timeout, e.Mode)
	if e.LastErr != nil {
		msg += ": last driver error: " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

package scenario

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument matches InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoCurrentPage is returned by page-scoped calls made before any page
	// was set.
	ErrNoCurrentPage = errors.New("no current page")
)

// InvalidArgumentError reports a caller passing a value the context refuses,
// such as a nil current page.
type InvalidArgumentError struct {
	Op     string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

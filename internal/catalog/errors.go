package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPageNotFound matches PageNotFoundError.
	ErrPageNotFound = errors.New("page not found")
	// ErrTypeMismatch matches TypeMismatchError.
	ErrTypeMismatch = errors.New("page type mismatch")
)

// PageNotFoundError reports a lookup of a page name the catalog does not hold.
type PageNotFoundError struct {
	Name  string
	Known []string
}

func (e *PageNotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("page %q is not in the catalog (catalog is empty)", e.Name)
	}
	return fmt.Sprintf("page %q is not in the catalog (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *PageNotFoundError) Is(target error) bool { return target == ErrPageNotFound }

// TypeMismatchError reports a typed lookup whose page has a different type.
type TypeMismatchError struct {
	Name   string
	Want   string
	Actual string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("page %q is a %s, not a %s", e.Name, e.Actual, e.Want)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

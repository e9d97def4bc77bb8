package element

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrDuplicateName      = errors.New("duplicate element name")
	ErrInvalidDeclaration = errors.New("invalid element declaration")
	ErrElementNotFound    = errors.New("element not found")
)

// DuplicateNameError reports two sibling declarations sharing a name.
type DuplicateNameError struct {
	Owner string
	Name  string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%q declares element %q more than once", e.Owner, e.Name)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }

// InvalidDeclarationError reports a declaration whose shape is not a leaf
// element, a list of leaves or blocks, or a block.
type InvalidDeclarationError struct {
	Owner  string
	Name   string
	Reason string
}

func (e *InvalidDeclarationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid declaration in %q: %s", e.Owner, e.Reason)
	}
	return fmt.Sprintf("invalid declaration of %q in %q: %s", e.Name, e.Owner, e.Reason)
}

func (e *InvalidDeclarationError) Is(target error) bool { return target == ErrInvalidDeclaration }

// ElementNotFoundError reports a lookup by a name that is not declared, or that
// is declared with a different kind than the one requested.
type ElementNotFoundError struct {
	Owner    string
	Name     string
	Want     Kind
	Declared bool
	Actual   Kind
}

func (e *ElementNotFoundError) Error() string {
	if !e.Declared {
		return fmt.Sprintf("element %q not found on %q", e.Name, e.Owner)
	}
	return fmt.Sprintf("element %q on %q is a %s, not a %s", e.Name, e.Owner, e.Actual, e.Want)
}

func (e *ElementNotFoundError) Is(target error) bool { return target == ErrElementNotFound }

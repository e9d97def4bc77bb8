package vars

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrVariableNotFound matches VariableNotFoundError.
	ErrVariableNotFound = errors.New("variable not found")
	// ErrUnresolved matches UnresolvedVariableError.
	ErrUnresolved = errors.New("unresolved variable")
	// ErrCyclic matches CyclicVariableError.
	ErrCyclic = errors.New("cyclic variable reference")
	// ErrExpression matches ExpressionError.
	ErrExpression = errors.New("invalid expression")
)

// VariableNotFoundError is returned by Get for a name absent from the scope.
type VariableNotFoundError struct {
	Name string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable %q is not set in this scenario", e.Name)
}

func (e *VariableNotFoundError) Is(target error) bool { return target == ErrVariableNotFound }

// UnresolvedVariableError names a template token that neither the external
// configuration nor the scope could supply.
type UnresolvedVariableError struct {
	Token    string
	Template string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("cannot resolve {%s} in %q: not a property or scenario variable", e.Token, e.Template)
}

func (e *UnresolvedVariableError) Is(target error) bool { return target == ErrUnresolved }

// CyclicVariableError reports a template that still held tokens after the
// maximum number of substitution passes.
type CyclicVariableError struct {
	Template  string
	Passes    int
	Remaining []string
}

func (e *CyclicVariableError) Error() string {
	return fmt.Sprintf("template %q still references {%s} after %d substitution passes",
		e.Template, strings.Join(e.Remaining, "}, {"), e.Passes)
}

func (e *CyclicVariableError) Is(target error) bool { return target == ErrCyclic }

// ExpressionError is a syntax or type error raised by Evaluate. Pos is the
// byte offset in Expr where the problem was detected.
type ExpressionError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression %q at offset %d: %s", e.Expr, e.Pos, e.Msg)
}

func (e *ExpressionError) Is(target error) bool { return target == ErrExpression }

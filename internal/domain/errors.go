package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrDomain is matched by every error produced by the model.
	ErrDomain = errors.New("value outside model domain")

	// ErrInvalidInput is matched by input parsing and validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError reports an argument that violates an operation's precondition.
type DomainError struct {
	Op    string // operation name, e.g. "heat_flux"
	Param string // offending parameter
	Value float64
	Rule  string // human-readable constraint, e.g. "> 0"

	input bool
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s must be %s, got %s", e.Op, e.Param, e.Rule, strconv.FormatFloat(e.Value, 'g', -1, 64))
}

// Is lets errors.Is match ErrDomain always, and ErrInvalidInput for
// boundary failures.
func (e *DomainError) Is(target error) bool {
	switch target {
	case ErrDomain:
		return true
	case ErrInvalidInput:
		return e.input
	default:
		return false
	}
}

func domainErr(op, param string, v float64, rule string) *DomainError {
	return &DomainError{Op: op, Param: param, Value: v, Rule: rule}
}

func inputErr(op, param string, v float64, rule string) *DomainError {
	return &DomainError{Op: op, Param: param, Value: v, Rule: rule, input: true}
}

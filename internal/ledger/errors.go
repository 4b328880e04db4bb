package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Use errors.Is to classify a failed mutation.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrPersistence = errors.New("persistence failed")
)

// MutationError describes a failed create, update, delete or import. Message
// is short enough to show to a user; Details lists every individual problem.
type MutationError struct {
	Op      string
	Kind    error
	Message string
	Details []string
	Err     error
}

func (e *MutationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Op, e.Message)
	if len(e.Details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *MutationError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func notFound(op, id string) *MutationError {
	return &MutationError{Op: op, Kind: ErrNotFound, Message: "work entry not found", Details: []string{"id " + id}}
}

func invalid(op string, details []string) *MutationError {
	return &MutationError{Op: op, Kind: ErrValidation, Message: "invalid work entry", Details: details}
}

func persistence(op string, err error) *MutationError {
	return &MutationError{Op: op, Kind: ErrPersistence, Message: "failed to save work entries", Err: err}
}

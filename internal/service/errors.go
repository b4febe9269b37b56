package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"event-planner/internal/planner"
	"event-planner/internal/repository"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned by write paths whose target does not exist and
	// by reads of a single record.
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidTransition is returned for actions that do not apply to the
	// event's current state.
	ErrInvalidTransition = planner.ErrInvalidTransition
	// ErrCategoryInUse blocks deleting a category that tasks still reference.
	ErrCategoryInUse = errors.New("category is still used by tasks")
)

// ValidationError reports a missing or malformed field. It is raised before
// any store call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransportError wraps a store failure that is not a missing record.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// storeErr classifies a repository error. Not-found passes through so callers
// can match ErrNotFound; everything else becomes a TransportError.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &TransportError{Op: op, Err: err}
}

// SideEffectFailure reports a calendar sync that failed after the primary
// write committed. It is informational; the primary change stands.
type SideEffectFailure struct {
	Op  string
	Err error
}

func (e *SideEffectFailure) Error() string {
	return fmt.Sprintf("calendar %s: %v", e.Op, e.Err)
}

func (e *SideEffectFailure) Unwrap() error {
	return e.Err
}

// PartialFailure is returned by fan-out reads when some branches failed. The
// result returned alongside it holds whatever did load.
type PartialFailure struct {
	Failed map[string]error
}

func (e *PartialFailure) Error() string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("some data could not be loaded: %s", strings.Join(names, ", "))
}

// Unwrap exposes the branch errors to errors.Is and errors.As.
func (e *PartialFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/go-quotes/validation"
	"gorm.io/gorm"
)

// Error kinds surfaced by the quote services. Match them with errors.Is.
var (
	ErrNotFound     = errors.New("not_found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid_input")
	ErrBusy         = errors.New("busy")
	ErrStorage      = errors.New("storage_failure")
)

// InvalidInputError carries the field violations of a rejected payload.
type InvalidInputError struct {
	Violations validation.Violations
}

func (e *InvalidInputError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, code := range e.Violations {
		fields = append(fields, f+"="+code)
	}
	sort.Strings(fields)
	return "invalid_input: " + strings.Join(fields, ", ")
}

// Is makes InvalidInputError match ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(v validation.Violations) error {
	return &InvalidInputError{Violations: v}
}

// storageErr classifies a persistence error. Typed errors and context
// cancellation pass through; a unique key clash means another writer won
// the version number and is reported as busy.
func storageErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrInvalidInput), errors.Is(err, ErrBusy), errors.Is(err, ErrStorage):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s: concurrent version write", ErrBusy, op)
	default:
		return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
	}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrTimeout            = errors.New("timeout")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// InsufficientMaterialError reports a ledger guard violation for a single
// consumption line. It carries the quantities the foreman needs to correct
// the report; they are surfaced verbatim to the caller.
type InsufficientMaterialError struct {
	MaterialID string
	Material   string
	Unit       string
	Requested  float64
	Available  float64
}

func (e *InsufficientMaterialError) Error() string {
	name := e.Material
	if name == "" {
		name = e.MaterialID
	}
	return fmt.Sprintf("insufficient material %q: requested %.3f, available %.3f %s",
		name, e.Requested, e.Available, e.Unit)
}

func AsInsufficientMaterial(err error) (*InsufficientMaterialError, bool) {
	var im *InsufficientMaterialError
	if errors.As(err, &im) {
		return im, true
	}
	return nil, false
}

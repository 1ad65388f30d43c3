package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// NewInvalidFieldError is used when a configuration field holds a bad value.
func NewInvalidFieldError(field, reason string) error {
	return errors.Errorf("invalid %q: %s", field, reason)
}

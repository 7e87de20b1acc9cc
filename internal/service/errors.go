package service

import (
	"errors"
	"fmt"

	"legaldesk/internal/policy"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	// ErrInvalidCredentials is an authentication failure
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", policy.ErrUnauthenticated)
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

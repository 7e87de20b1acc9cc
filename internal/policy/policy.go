// Package policy holds the authorization rules of the dashboard: which caller
// may perform which operation on which resource.
//
// A Policy is an ordered chain of rules. Each rule returns Allow to permit the
// operation, Skip (or nil) to abstain, or any other error to reject it. A chain
// that ends without an Allow rejects with ErrForbidden.
package policy

import (
	"errors"
	"fmt"

	"legaldesk/internal/domain"
)

// Decision sentinels returned by rules.
var (
	Allow = errors.New("policy: allow")
	Skip  = errors.New("policy: skip")
)

// Rejections surfaced to callers.
var (
	ErrUnauthenticated = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	// ErrSelfTarget rejects an admin acting destructively on their own account.
	// It is a validation failure, not a privilege failure.
	ErrSelfTarget = errors.New("operation not allowed on own account")
)

// Rule evaluates a caller. A nil identity is an anonymous caller.
type Rule func(id *domain.Identity) error

// Policy is an ordered chain of rules.
type Policy []Rule

// Eval runs the chain and returns nil only if some rule allowed the caller.
func (p Policy) Eval(id *domain.Identity) error {
	for _, rule := range p {
		switch decision := rule(id); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return ErrForbidden
}

// Forbiddenf returns a formatted error wrapping ErrForbidden.
func Forbiddenf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrForbidden}, a...)...)
}

// RequireAuthenticated rejects anonymous callers with ErrUnauthenticated.
func RequireAuthenticated() Rule {
	return func(id *domain.Identity) error {
		if id == nil {
			return ErrUnauthenticated
		}
		return Skip
	}
}

// AllowRole allows callers holding role.
func AllowRole(role domain.Role) Rule {
	return func(id *domain.Identity) error {
		if id != nil && id.Role == role {
			return Allow
		}
		return Skip
	}
}

// AllowOwner allows the caller whose id equals ownerID.
func AllowOwner(ownerID string) Rule {
	return func(id *domain.Identity) error {
		if id != nil && ownerID != "" && id.ID == ownerID {
			return Allow
		}
		return Skip
	}
}

// DenyIf rejects with ErrForbidden and msg when cond holds.
func DenyIf(cond bool, msg string) Rule {
	return func(*domain.Identity) error {
		if cond {
			return Forbiddenf("%s", msg)
		}
		return Skip
	}
}

// AlwaysAllow terminates a chain with an allow decision.
func AlwaysAllow() Rule {
	return func(*domain.Identity) error { return Allow }
}

// DenyWith terminates a chain with a forbidden decision carrying msg.
func DenyWith(msg string) Rule {
	return func(*domain.Identity) error { return Forbiddenf("%s", msg) }
}

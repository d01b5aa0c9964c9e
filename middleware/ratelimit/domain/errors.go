package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingIdentifier    = errors.New("client identifier missing for rate limiting")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrInvalidConfiguration = errors.New("invalid rate limit configuration")
	ErrRuleNotFound         = errors.New("user-specific rule not found")
)

// ThrottledError carrega o que o cliente precisa para tentar de novo.
type ThrottledError struct {
	Identifier        string
	RetryAfterSeconds int
	RuleClass         RuleClass
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q (%s rule): retry in %ds", e.Identifier, e.RuleClass, e.RetryAfterSeconds)
}

func (e *ThrottledError) Unwrap() error { return ErrRateLimitExceeded }

package service

import (
	"errors"
	"fmt"
	"strings"
)

// Domain error taxonomy. Handlers map these onto distinct HTTP statuses;
// the public signing page in particular must keep not-found, expired and
// already-signed apart.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAgreementImmutable = errors.New("agreement is completed and can no longer be modified")
	ErrBudgetExceeded     = errors.New("milestone total exceeds project budget")
	ErrLinkNotFound       = errors.New("signing link not found")
	ErrTokenExpired       = errors.New("signing link has expired")
	ErrSignatureLocked    = errors.New("signature can no longer be changed")
)

// FieldError is a single per-field validation failure.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Msg   string `json:"msg"`
}

// ValidationError aggregates every field failure from one validation pass so
// the caller can fix the whole form at once.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

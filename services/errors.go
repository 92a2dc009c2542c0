package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrMissingBookingID     = errors.New("missing booking id")
	ErrNotFound             = errors.New("not found")
	ErrPaymentNotSuccessful = errors.New("payment not successful")
	ErrAmountMismatch       = errors.New("amount mismatch")
	ErrUpstream             = errors.New("upstream failure")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// ValidationError collects per-field problems with a request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid argument: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

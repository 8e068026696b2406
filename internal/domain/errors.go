package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotRegistered  = errors.New("the number is not registered")
	ErrNotReady       = errors.New("whatsapp session is not ready")
	ErrSessionClosed  = errors.New("whatsapp session closed")
)

// Transport failures
var (
	ErrLookupFailed = errors.New("registration lookup failed")
	ErrSendFailed   = errors.New("send failed")
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

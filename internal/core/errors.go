package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult marks a selection that normalized fine but left no records
	// after country/year filtering. It is a terminal state, not a failure.
	ErrEmptyResult = errors.New("no data for this selection")

	ErrUnknownSource    = errors.New("unknown source")
	ErrUnknownIndicator = errors.New("unknown indicator")
	ErrUnknownCountry   = errors.New("unknown country")
	ErrInvalidRequest   = errors.New("invalid request")
)

// FetchError reports a failed network call or a non-success status.
type FetchError struct {
	URL    string
	Status int // 0 when the request never got a response
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a response whose shape is not what the adapter expects.
type ParseError struct {
	Source string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s response: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s response: %s", e.Source, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a wide table the discovery engine cannot unpivot.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema error: " + e.Reason
}

package core

// error_messages.go maps technical errors to user-friendly messages with codes
// for support reference.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source unreachable: The statistics provider could not be reached
//	         Action: Please try again in a few moments
//	         Match: *FetchError without status
//
//	SRC002 - Source rejected request: The provider returned an error status
//	         Action: The indicator may have moved; check the data link
//	         Match: *FetchError with status
//
//	SRC003 - Timeout: The provider took too long to answer
//	         Action: Please try again later
//	         Patterns: "deadline exceeded", "timeout"
//
// # Data Errors
//
//	PRS001 - Unexpected response: The provider answered in an unexpected format
//	         Match: *ParseError
//
//	SCH001 - Unsupported table layout: The dataset has no country column to pivot on
//	         Match: *SchemaError
//
//	DAT001 - No data: Nothing matches the current selection
//	         Match: ErrEmptyResult
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Unknown indicator
//	REQ002 - Unknown country
//	REQ003 - Unknown datasource
//	REQ004 - Invalid request parameter
//
// # Rate Limiting
//
//	RATE001 - Too many requests. Patterns: "rate limit"
//	RATE002 - Profile generation busy. Match: ErrTooManyProfiles
//
// # Default (ERR000)
//
// Typed errors are matched first with errors.Is/errors.As; remaining errors
// are matched case-insensitively with strings.Contains, first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgUnreachable = UserMessage{
		Message: "The statistics provider could not be reached",
		Action:  "Please try again in a few moments",
		Code:    "SRC001",
	}
	msgRejected = UserMessage{
		Message: "The statistics provider returned an error",
		Action:  "The indicator may have moved; check the data link",
		Code:    "SRC002",
	}
	msgTimeout = UserMessage{
		Message: "The statistics provider took too long to answer",
		Action:  "Please try again later",
		Code:    "SRC003",
	}
	msgParse = UserMessage{
		Message: "The provider answered in an unexpected format",
		Action:  "Try another indicator or report the indicator code",
		Code:    "PRS001",
	}
	msgSchema = UserMessage{
		Message: "The dataset layout is not supported",
		Action:  "Report the indicator code so the layout can be reviewed",
		Code:    "SCH001",
	}
	msgEmpty = UserMessage{
		Message: "No data for this selection",
		Action:  "Widen the year range or select other countries",
		Code:    "DAT001",
	}
	msgBusy = UserMessage{
		Message: "Other profiles are being generated",
		Action:  "Please retry in a minute",
		Code:    "RATE002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is consulted after the typed checks in MapError.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "deadline exceeded",
		msg:     msgTimeout,
	},
	{
		pattern: "timeout",
		msg:     msgTimeout,
	},
	{
		pattern: "unknown indicator",
		msg: UserMessage{
			Message: "Indicator not found",
			Action:  "Pick an indicator from the catalog",
			Code:    "REQ001",
		},
	},
	{
		pattern: "unknown country",
		msg: UserMessage{
			Message: "Country not found",
			Action:  "Pick a country from the reference list",
			Code:    "REQ002",
		},
	},
	{
		pattern: "unknown source",
		msg: UserMessage{
			Message: "Datasource is not configured",
			Action:  "Pick one of the listed datasources",
			Code:    "REQ003",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "Invalid request parameter",
			Action:  "Check the selection and try again",
			Code:    "REQ004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if errors.Is(err, ErrEmptyResult) {
		return msgEmpty
	}
	if errors.Is(err, ErrTooManyProfiles) {
		return msgBusy
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.Status != 0:
			return msgRejected
		case fe.Err != nil && isTimeout(fe.Err):
			return msgTimeout
		default:
			return msgUnreachable
		}
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return msgParse
	}

	var se *SchemaError
	if errors.As(err, &se) {
		return msgSchema
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "deadline exceeded") || strings.Contains(s, "timeout")
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

package core

// error_messages.go maps technical errors to user-friendly messages.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: An uploaded file exceeds the size limit
//	          Action: Split the file or remove unused columns
//	          Patterns: "file too large"
//
//	FILE002 - Invalid form: The upload could not be read
//	          Action: Submit the form again with two CSV files
//	          Patterns: "invalid form"
//
//	FILE003 - Input missing: An input file could not be opened
//	          Action: Upload both files again
//	          Patterns: "no such file"
//
//	FILE004 - No file: One or both files were not provided
//	          Action: Select both CSV files before submitting
//	          Patterns: "both files are required"
//
//	FILE005 - Empty file: A table has no content
//	          Action: Make sure both files have a header row
//	          Patterns: "empty file"
//
// # Match Errors (MATCH001-MATCH099)
//
//	MATCH001 - No rows: The second file has no data rows
//	           Action: Check your CSV files format
//	           Patterns: "empty result"
//
// # Worker Errors (WRK001-WRK099)
//
//	WRK001 - Worker failure: Matching stopped unexpectedly
//	         Action: Please try again or contact support
//	         Patterns: "worker failure"
//
// # Job Errors (JOB001-JOB099)
//
//	JOB001 - System busy: Too many matches in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent match jobs"
//
//	JOB002 - Not found: The match was not found in history
//	         Action: Verify the match ID
//	         Patterns: "match not found"
//
//	JOB003 - Request cancelled
//	         Patterns: "context canceled"
//
//	JOB004 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Access Errors (AUTH001, RATE001)
//
//	AUTH001 - API key missing or invalid
//	          Patterns: "api key"
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Patterns are matched case-insensitively with strings.Contains, first match
// wins.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Order matters: a worker failure may carry any panic text, so it
// is checked first.
var errorPatterns = []errorPattern{
	{
		pattern: "worker failure",
		msg: UserMessage{
			Message: "Matching stopped unexpectedly",
			Action:  "Please try again or contact support",
			Code:    "WRK001",
		},
	},

	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "An uploaded file exceeds the size limit",
			Action:  "Split the file or remove unused columns",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid form",
		msg: UserMessage{
			Message: "The upload could not be read",
			Action:  "Submit the form again with two CSV files",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "An input file could not be opened",
			Action:  "Upload both files again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "both files are required",
		msg: UserMessage{
			Message: "Both files are required",
			Action:  "Select both CSV files before submitting",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "One or both files are empty",
			Action:  "Make sure both files have a header row",
			Code:    "FILE005",
		},
	},

	// Match errors
	{
		pattern: "empty result",
		msg: UserMessage{
			Message: "No data could be generated",
			Action:  "Please check your CSV files format",
			Code:    "MATCH001",
		},
	},

	// Job errors
	{
		pattern: "too many concurrent match jobs",
		msg: UserMessage{
			Message: "Too many matches in progress",
			Action:  "Please wait a moment and try again",
			Code:    "JOB001",
		},
	},
	{
		pattern: "match not found",
		msg: UserMessage{
			Message: "Match not found",
			Action:  "Verify the match ID",
			Code:    "JOB002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "JOB003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try smaller files or try again later",
			Code:    "JOB004",
		},
	},

	// Access errors
	{
		pattern: "api key",
		msg: UserMessage{
			Message: "Missing or invalid API key",
			Action:  "Provide a valid X-API-Key header",
			Code:    "AUTH001",
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
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
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

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

package errs

// # Error Codes Reference
//
// Codes are quoted by operators when a load or report misbehaves.
//
//	CONN001 - Unable to connect to database after retries
//	SRC001  - Record source could not be opened or read
//	ROW001  - A record failed date/price parsing and was skipped
//	SQL001  - Duplicate key: the record already exists
//	SQL002  - Referenced record does not exist (foreign key)
//	SQL003  - Object already exists
//	SQL004  - Statement failed
//	QRY001  - Unknown report name
//	ERR000  - Anything else; check the logs for the technical error
//
// Tagged errors are mapped by kind first. Untagged errors fall through to
// case-insensitive pattern matching, first match wins.

import (
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information with a suggested action.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgConnectivity = UserMessage{
		Message: "Unable to connect to database",
		Action:  "Check host, port and credentials, then try again",
		Code:    "CONN001",
	}
	msgSource = UserMessage{
		Message: "Record source could not be read",
		Action:  "Check the file path or bucket URI and permissions",
		Code:    "SRC001",
	}
	msgRowParse = UserMessage{
		Message: "Record has an invalid date or price",
		Action:  "Use YYYY-MM-DD dates and plain decimal prices",
		Code:    "ROW001",
	}
	msgStatement = UserMessage{
		Message: "Database statement failed",
		Action:  "Review the logs for the failing statement key",
		Code:    "SQL004",
	}
	msgNotFound = UserMessage{
		Message: "Unknown report name",
		Action:  "List available reports and pick one of them",
		Code:    "QRY001",
	}
)

// statementPatterns refine StatementFailure and classify untagged driver errors.
// Order matters: specific before general.
var statementPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Remove the duplicate rows from the file",
			Code:    "SQL001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Remove the duplicate rows from the file",
			Code:    "SQL001",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Load the dimension rows before the facts",
			Code:    "SQL002",
		},
	},
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "Object already exists",
			Action:  "No action needed",
			Code:    "SQL003",
		},
	},
	{
		pattern: "connection refused",
		msg:     msgConnectivity,
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the logs",
	Code:    "ERR000",
}

// MapError converts an error into an operator-facing message.
// Returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch KindOf(err) {
	case KindConnectivity:
		return msgConnectivity
	case KindSourceUnavailable:
		return msgSource
	case KindRowParse:
		return msgRowParse
	case KindQueryKeyNotFound:
		return msgNotFound
	case KindStatementFailure:
		if msg, ok := matchPattern(err); ok {
			return msg
		}
		return msgStatement
	}

	if msg, ok := matchPattern(err); ok {
		return msg
	}
	return defaultMessage
}

func matchPattern(err error) (UserMessage, bool) {
	errStr := strings.ToLower(err.Error())
	for _, ep := range statementPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

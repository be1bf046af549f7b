package core

// error_messages.go maps technical errors to user-friendly messages with
// codes for support reference.
//
// Known sentinel errors are matched first with errors.Is. Anything else is
// matched by case-insensitive substring against errorPatterns, first match
// wins. Unmatched errors map to ERR000; check the logs for the original.
//
//	DB001   Duplicate email
//	DB002   Referenced record does not exist
//	DB003   Unable to connect to database
//	DB004   Database busy (deadlock)
//	VAL001  Invalid date
//	VAL002  Invalid number
//	VAL003  Column schema mismatch
//	VAL004  Employee not found
//	FILE001 File too large
//	FILE002 Invalid CSV
//	FILE003 No file provided
//	BAT001  Batch cancelled
//	BAT002  Batch timed out
//	BAT003  Too many concurrent batches
//	RATE001 Rate limited

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmployeeNotFound is returned by lookups for an unknown employee.
var ErrEmployeeNotFound = errors.New("employee not found")

// ErrNoFile is returned when a request carries no batch body.
var ErrNoFile = errors.New("no file provided")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgDuplicateEmail = UserMessage{
		Message: "An employee with this email already exists",
		Action:  "Re-run the batch; existing employees are updated in place",
		Code:    "DB001",
	}
	msgForeignKey = UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Ensure managers are listed before their reports",
		Code:    "DB002",
	}
	msgConnection = UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB003",
	}
	msgDeadlock = UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB004",
	}
	msgHeader = UserMessage{
		Message: "Input columns must match: Name, Email, Manager, Salary, Hire Date",
		Action:  "Fix the header row of your file",
		Code:    "VAL003",
	}
	msgNotFound = UserMessage{
		Message: "Employee not found",
		Action:  "Check the email address",
		Code:    "VAL004",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller batches",
		Code:    "FILE001",
	}
	msgNoFile = UserMessage{
		Message: "No file was provided",
		Action:  "Send the batch as the request body or as form field \"file\"",
		Code:    "FILE003",
	}
	msgCancelled = UserMessage{
		Message: "Batch was cancelled",
		Action:  "Rows processed before cancellation were saved; re-run the batch",
		Code:    "BAT001",
	}
	msgTimeout = UserMessage{
		Message: "Batch timed out",
		Action:  "Rows processed before the timeout were saved; re-run the batch",
		Code:    "BAT002",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other batches",
		Action:  "Please wait a moment and try again",
		Code:    "BAT003",
	}
)

// sentinelMessages is checked in order with errors.Is.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrTooManyBatches, msgBusy},
	{ErrBatchTooLarge, msgTooLarge},
	{ErrEmployeeNotFound, msgNotFound},
	{ErrNoFile, msgNoFile},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// More specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{pattern: "already exists", msg: msgDuplicateEmail},
	{pattern: "duplicate key", msg: msgDuplicateEmail},
	{pattern: "violates foreign key", msg: msgForeignKey},
	{pattern: "connection refused", msg: msgConnection},
	{pattern: "connection reset", msg: msgConnection},
	{pattern: "failed to connect", msg: msgConnection},
	{pattern: "deadlock", msg: msgDeadlock},
	{pattern: "input columns must match", msg: msgHeader},
	{pattern: "must be a valid date", msg: UserMessage{
		Message: "Invalid date format detected",
		Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
		Code:    "VAL001",
	}},
	{pattern: "must be a valid number", msg: UserMessage{
		Message: "Invalid number format detected",
		Action:  "Use whole numbers without currency symbols or separators",
		Code:    "VAL002",
	}},
	{pattern: "parse error", msg: UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated",
		Code:    "FILE002",
	}},
	{pattern: "too large", msg: msgTooLarge},
	{pattern: "rate limit", msg: UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("line 4: %w", context.DeadlineExceeded))
//	// msg.Code == "BAT002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

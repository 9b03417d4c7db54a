package engine

import "fmt"

// Code is one of the closed set of error codes every public entry point
// reports through (spec §6).
type Code string

const (
	CodeParseError     Code = "PARSE_ERROR"
	CodeUnknownStream  Code = "UNKNOWN_STREAM"
	CodeDuplicateFlow  Code = "DUPLICATE_FLOW"
	CodeInvalidSpec    Code = "INVALID_SPEC"
	CodeExecutionError Code = "EXECUTION_ERROR"
	CodeFlushError     Code = "FLUSH_ERROR"
	CodeCommandFailed  Code = "COMMAND_FAILED"
)

// ErrorInfo is the error half of a Result, present only when Success is
// false.
type ErrorInfo struct {
	Code    Code
	Message string
}

// Error implements the error interface so ErrorInfo can be returned or
// wrapped directly alongside a Result.
func (e *ErrorInfo) Error() string {
	return string(e.Code) + ": " + e.Message
}

func fail(code Code, format string, args ...interface{}) Result {
	return Result{Err: &ErrorInfo{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// Package errors defines the structured error taxonomy for the analysis
// engine. Parse errors are fatal for a file; analysis errors are fatal for a
// file but never propagate to sibling files in batch mode. Everything else
// that is irregular in a stylesheet is represented as data in the analysis
// output, not as an error.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType categorizes analysis errors.
type ErrorType string

const (
	// ErrorTypeParse marks malformed XML input.
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeAnalysis marks an unexpected failure inside the semantic or
	// execution stages.
	ErrorTypeAnalysis ErrorType = "analysis"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// AnalysisError is the structured error type used across the engine. It
// carries the failing stage and file so batch mode can report per-file
// failures without losing context.
type AnalysisError struct {
	Type     ErrorType
	Code     string
	Message  string
	Stage    string
	FilePath string
	Line     int
	Cause    error
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Stage != "" {
		parts = append(parts, "stage:"+e.Stage)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *AnalysisError) Is(target error) bool {
	var t *AnalysisError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithFile adds file location information.
func (e *AnalysisError) WithFile(filePath string, line int) *AnalysisError {
	e.FilePath = filePath
	e.Line = line

	return e
}

// WithStage adds the pipeline stage name.
func (e *AnalysisError) WithStage(stage string) *AnalysisError {
	e.Stage = stage

	return e
}

// Error creation functions

// NewParseError creates a parse error for malformed XML input.
func NewParseError(message string, cause error) *AnalysisError {
	return &AnalysisError{
		Type:    ErrorTypeParse,
		Code:    ErrCodeMalformedXML,
		Message: message,
		Stage:   "parser",
		Cause:   cause,
	}
}

// NewAnalysisError creates an error for an unexpected stage failure.
func NewAnalysisError(stage, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Type:    ErrorTypeAnalysis,
		Code:    ErrCodeStageFailed,
		Message: message,
		Stage:   stage,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(message string, cause error) *AnalysisError {
	return &AnalysisError{
		Type:    ErrorTypeIO,
		Code:    ErrCodeFileNotFound,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *AnalysisError {
	return &AnalysisError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeConfigInvalid,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *AnalysisError {
	return &AnalysisError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternal,
		Message: message,
		Cause:   cause,
	}
}

// IsParseError checks if an error is a parse error.
func IsParseError(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Type == ErrorTypeParse
	}

	return false
}

// IsAnalysisError checks if an error is a stage analysis error.
func IsAnalysisError(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Type == ErrorTypeAnalysis
	}

	return false
}

// Stage extracts the failing stage name from an error, or "" when the error
// carries none.
func Stage(err error) string {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Stage
	}

	return ""
}

// Common error codes.
const (
	ErrCodeMalformedXML  = "ERR_MALFORMED_XML"
	ErrCodeStageFailed   = "ERR_STAGE_FAILED"
	ErrCodeFileNotFound  = "ERR_FILE_NOT_FOUND"
	ErrCodeConfigInvalid = "ERR_CONFIG_INVALID"
	ErrCodeInternal      = "ERR_INTERNAL"
)

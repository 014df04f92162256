package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// CollectionFailed indicates a file or location could not be read during evidence collection
	CollectionFailed ErrorCode = "COLLECTION_FAILED"
	// InvalidCandidate indicates a candidate is missing required identity fields
	InvalidCandidate ErrorCode = "INVALID_CANDIDATE"
	// ConfigurationInvalid indicates bad weight/threshold configuration
	ConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"
	// CandidateTimeout indicates a candidate exceeded its evaluation timeout
	CandidateTimeout ErrorCode = "CANDIDATE_TIMEOUT"
	// IndexUnavailable indicates the repository index could not be built
	IndexUnavailable ErrorCode = "INDEX_UNAVAILABLE"
	// BackendUnavailable indicates an optional evidence backend (git, SCIP) cannot be used
	BackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// HistoryUnavailable indicates the run history store could not be used
	HistoryUnavailable ErrorCode = "HISTORY_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests editing the configuration file
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	Field       string        `json:"field,omitempty"`
}

// CheckError represents a donecheck error with code, message, and suggestions
type CheckError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewCheckError creates a new CheckError
func NewCheckError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *CheckError {
	return &CheckError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *CheckError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CheckError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *CheckError) WithDetails(details interface{}) *CheckError {
	e.Details = details
	return e
}

// HasCode reports whether err (or anything it wraps) is a CheckError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var ce *CheckError
	if stderrors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// Configuration returns a CONFIGURATION_INVALID error for the given field.
func Configuration(field, message string) *CheckError {
	return NewCheckError(
		ConfigurationInvalid,
		fmt.Sprintf("config field %q: %s", field, message),
		nil,
		[]FixAction{
			{
				Type:        EditConfig,
				Field:       field,
				Description: "Fix the value in .donecheck/config.json",
			},
			{
				Type:        RunCommand,
				Command:     "donecheck config validate",
				Safe:        true,
				Description: "Re-check the configuration",
			},
		},
	).WithDetails(map[string]interface{}{"field": field})
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IndexUnavailable: {
		{
			Type:        RunCommand,
			Command:     "donecheck config show",
			Safe:        true,
			Description: "Check the repository root and ignore settings",
		},
	},
	HistoryUnavailable: {
		{
			Type:        RunCommand,
			Command:     "rm .donecheck/history.db",
			Safe:        false,
			Description: "Reset the run history database",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}

// Warning is a non-fatal, per-candidate problem surfaced on a batch result.
type Warning struct {
	Code        ErrorCode `json:"code"`
	CandidateID string    `json:"candidateId,omitempty"`
	Path        string    `json:"path,omitempty"`
	Message     string    `json:"message"`
}

// String renders the warning for console output.
func (w Warning) String() string {
	s := string(w.Code) + ": " + w.Message
	if w.Path != "" {
		s += " (" + w.Path + ")"
	}
	if w.CandidateID != "" {
		s += " [" + w.CandidateID + "]"
	}
	return s
}

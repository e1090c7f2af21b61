package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"cityquest-mcp-service/internal/models"
)

// ErrorCategory represents different types of errors in the system
type ErrorCategory string

const (
	// Tool arguments failed the input schema
	ErrorCategoryValidation ErrorCategory = "validation"
	// Unknown tool name, resource URI, prompt or game
	ErrorCategoryNotFound ErrorCategory = "not_found"
	// A structured-content builder failed or produced a non-conformant payload
	ErrorCategoryBuilder ErrorCategory = "builder"
	// A catalog entry could not be registered at startup
	ErrorCategoryRegistration ErrorCategory = "registration"
	// MCP protocol related errors
	ErrorCategoryMCP ErrorCategory = "mcp"
	// Game store failures
	ErrorCategoryStorage ErrorCategory = "storage"
	// System/internal errors
	ErrorCategorySystem ErrorCategory = "system"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"
	ErrorSeverityMedium   ErrorSeverity = "medium"
	ErrorSeverityHigh     ErrorSeverity = "high"
	ErrorSeverityCritical ErrorSeverity = "critical"
)

// JSON-RPC and MCP wire error codes
const (
	MCPCodeParseError       = -32700
	MCPCodeInvalidRequest   = -32600
	MCPCodeMethodNotFound   = -32601
	MCPCodeInvalidParams    = -32602
	MCPCodeInternalError    = -32603
	MCPCodeResourceNotFound = -32002
)

// FieldViolation names one argument that broke one constraint
type FieldViolation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

// StructuredError represents a structured error with additional context
type StructuredError struct {
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Violations  []FieldViolation       `json:"violations,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Recoverable bool                   `json:"recoverable"`
	Cause       error                  `json:"-"`
}

// Error implements the error interface
func (se *StructuredError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", se.Category, se.Code, se.Message)
	if se.Details != "" {
		msg += ": " + se.Details
	}
	if len(se.Violations) > 0 {
		parts := make([]string, 0, len(se.Violations))
		for _, v := range se.Violations {
			parts = append(parts, fmt.Sprintf("%s (%s)", v.Field, v.Constraint))
		}
		msg += ": " + strings.Join(parts, ", ")
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping
func (se *StructuredError) Unwrap() error {
	return se.Cause
}

// ToMCPError converts a StructuredError to an MCP protocol error
func (se *StructuredError) ToMCPError() *models.MCPError {
	var mcpCode int
	switch se.Category {
	case ErrorCategoryValidation:
		mcpCode = MCPCodeInvalidParams
	case ErrorCategoryNotFound:
		if se.Code == ErrCodeResourceNotFound {
			mcpCode = MCPCodeResourceNotFound
		} else {
			mcpCode = MCPCodeInvalidParams
		}
	case ErrorCategoryMCP:
		mcpCode = MCPCodeInvalidRequest
	default:
		mcpCode = MCPCodeInternalError
	}

	data := map[string]interface{}{
		"category":  se.Category,
		"code":      se.Code,
		"severity":  se.Severity,
		"timestamp": se.Timestamp,
	}
	if len(se.Context) > 0 {
		data["context"] = se.Context
	}
	if len(se.Violations) > 0 {
		data["violations"] = se.Violations
	}

	return &models.MCPError{
		Code:    mcpCode,
		Message: se.Message,
		Data:    data,
	}
}

// NewStructuredError creates a new structured error
func NewStructuredError(category ErrorCategory, severity ErrorSeverity, code, message string) *StructuredError {
	return &StructuredError{
		Category:    category,
		Severity:    severity,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		Recoverable: severity != ErrorSeverityCritical,
		Context:     make(map[string]interface{}),
	}
}

// WithDetails adds details to the error
func (se *StructuredError) WithDetails(details string) *StructuredError {
	se.Details = details
	return se
}

// WithContext adds context information to the error
func (se *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if se.Context == nil {
		se.Context = make(map[string]interface{})
	}
	se.Context[key] = value
	return se
}

// WithViolations appends field violations to the error
func (se *StructuredError) WithViolations(violations ...FieldViolation) *StructuredError {
	se.Violations = append(se.Violations, violations...)
	return se
}

// WithCause sets the underlying cause error
func (se *StructuredError) WithCause(err error) *StructuredError {
	se.Cause = err
	return se
}

// IsRecoverable returns whether the error is recoverable
func (se *StructuredError) IsRecoverable() bool {
	return se.Recoverable
}

// SetRecoverable sets the recoverable flag
func (se *StructuredError) SetRecoverable(recoverable bool) *StructuredError {
	se.Recoverable = recoverable
	return se
}

// As returns the first StructuredError in err's chain
func As(err error) (*StructuredError, bool) {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCategory reports whether err carries a StructuredError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	se, ok := As(err)
	return ok && se.Category == category
}

// NewValidationError creates a validation related error
func NewValidationError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryValidation, ErrorSeverityLow, code, message).WithCause(err)
}

// NewNotFoundError creates an error for an unregistered name or URI
func NewNotFoundError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryNotFound, ErrorSeverityLow, code, message).WithCause(err)
}

// NewBuilderError creates an error for a failed structured-content build
func NewBuilderError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryBuilder, ErrorSeverityMedium, code, message).WithCause(err)
}

// NewRegistrationError creates an error for a catalog entry that failed to register
func NewRegistrationError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryRegistration, ErrorSeverityHigh, code, message).WithCause(err)
}

// NewMCPError creates an MCP protocol related error
func NewMCPError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryMCP, ErrorSeverityMedium, code, message).WithCause(err)
}

// NewStorageError creates a game store related error
func NewStorageError(code, message string, err error) *StructuredError {
	severity := ErrorSeverityMedium
	if code == ErrCodeStoreUnavailable {
		severity = ErrorSeverityHigh
	}
	return NewStructuredError(ErrorCategoryStorage, severity, code, message).WithCause(err)
}

// NewSystemError creates a system/internal error
func NewSystemError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategorySystem, ErrorSeverityCritical, code, message).WithCause(err)
}

// Common error codes
const (
	// Validation error codes
	ErrCodeInvalidParams    = "INVALID_PARAMS"
	ErrCodeInvalidArguments = "INVALID_ARGUMENTS"

	// Not found error codes
	ErrCodeToolNotFound     = "TOOL_NOT_FOUND"
	ErrCodeResourceNotFound = "RESOURCE_NOT_FOUND"
	ErrCodePromptNotFound   = "PROMPT_NOT_FOUND"
	ErrCodeGameNotFound     = "GAME_NOT_FOUND"

	// Builder error codes
	ErrCodeBuilderFailed     = "BUILDER_FAILED"
	ErrCodeBuilderPanic      = "BUILDER_PANIC"
	ErrCodeOutputNonConforms = "OUTPUT_SCHEMA_MISMATCH"

	// Registration error codes
	ErrCodeTemplateFailed    = "TEMPLATE_MATERIALIZATION_FAILED"
	ErrCodeDuplicateTool     = "DUPLICATE_TOOL"
	ErrCodeAlreadyRegistered = "ALREADY_REGISTERED"

	// MCP protocol error codes
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeMethodNotFound = "METHOD_NOT_FOUND"

	// Storage error codes
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeStoreFailed      = "STORE_OPERATION_FAILED"

	// System error codes
	ErrCodeInitializationFailed = "INITIALIZATION_FAILED"
	ErrCodeShutdownFailed       = "SHUTDOWN_FAILED"
	ErrCodeUnexpectedPanic      = "UNEXPECTED_PANIC"
	ErrCodeCircuitOpen          = "CIRCUIT_BREAKER_OPEN"
	ErrCodePromptRenderFailed   = "PROMPT_RENDER_FAILED"
	ErrCodeNotInitialized       = "NOT_INITIALIZED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

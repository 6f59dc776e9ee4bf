package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryNetwork       ErrorCategory = "network"
	ErrorCategoryDatabase      ErrorCategory = "database"
	ErrorCategoryValidation    ErrorCategory = "validation"
	ErrorCategoryProcessing    ErrorCategory = "processing"
	ErrorCategoryTimeout       ErrorCategory = "timeout"
)

// Error codes for the record processing pipeline. Each code maps to the step
// it terminates: a failed step ends the record, never the batch.
const (
	CodeLookupFailed           = "LOOKUP_FAILED"
	CodeNoAddressMatches       = "NO_ADDRESS_MATCHES"
	CodeAddressQualityRejected = "ADDRESS_QUALITY_REJECTED"
	CodeQuoteFailed            = "QUOTE_FAILED"
	CodePersistenceFailed      = "PERSISTENCE_FAILED"
	CodeTimeout                = "TIMEOUT"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeTransportFailed        = "TRANSPORT_FAILED"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

// WrapError wraps an existing error with service error context
func WrapError(err error, category ErrorCategory, code, serviceName, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	// If it's already a ServiceError, just update the context
	if serviceErr, ok := err.(*ServiceError); ok {
		serviceErr.ServiceName = serviceName
		serviceErr.Operation = operation
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, retryable, err)
}

// ErrorCode extracts the pipeline error code from an error, or
// CodeTransportFailed when the error carries no code.
func ErrorCode(err error) string {
	if serviceErr, ok := err.(*ServiceError); ok {
		return serviceErr.Code
	}
	return CodeTransportFailed
}

// IsQuoteValidationShaped reports whether a quote failure looks like the
// vendor rejecting the request payload (as opposed to a transport fault).
// Only these failures trigger the single retry with the optional field
// removed.
func IsQuoteValidationShaped(err error) bool {
	if serviceErr, ok := err.(*ServiceError); ok {
		if serviceErr.Category == ErrorCategoryTimeout || serviceErr.Category == ErrorCategoryNetwork {
			return false
		}
		return true
	}

	errorMsg := strings.ToLower(err.Error())
	transportPatterns := []string{
		"timeout", "connection refused", "connection reset",
		"temporary failure", "service unavailable", "network", "dns", "socket",
	}
	for _, pattern := range transportPatterns {
		if strings.Contains(errorMsg, pattern) {
			return false
		}
	}
	return true
}

// BuildValidationErrorSummary formats parse-time row errors for the caller:
// up to maxShown individual messages, then a one-line remainder count.
func BuildValidationErrorSummary(errors []string, maxShown int) string {
	if len(errors) == 0 {
		return ""
	}

	shown := len(errors)
	if shown > maxShown {
		shown = maxShown
	}

	var summaryBuilder strings.Builder
	summaryBuilder.WriteString(fmt.Sprintf("%d row(s) rejected during validation", len(errors)))
	for i := 0; i < shown; i++ {
		summaryBuilder.WriteString(fmt.Sprintf("; %s", errors[i]))
	}
	if len(errors) > shown {
		summaryBuilder.WriteString(fmt.Sprintf("; and %d additional errors", len(errors)-shown))
	}

	return summaryBuilder.String()
}

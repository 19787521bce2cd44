package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSchema              ErrorType = "SCHEMA"
	ErrTypeUnmappedCategory    ErrorType = "UNMAPPED_CATEGORY"
	ErrTypeIdentifierCollision ErrorType = "IDENTIFIER_COLLISION"
	ErrTypeMissingIdentifier   ErrorType = "MISSING_IDENTIFIER"
	ErrTypeStorage             ErrorType = "STORAGE"
	ErrTypeValidation          ErrorType = "VALIDATION"
	ErrTypeConfig              ErrorType = "CONFIG"
)

// Sentinels for errors.Is; they match any AppError of the same type.
var (
	ErrSchema              = &AppError{Type: ErrTypeSchema}
	ErrUnmappedCategory    = &AppError{Type: ErrTypeUnmappedCategory}
	ErrIdentifierCollision = &AppError{Type: ErrTypeIdentifierCollision}
	ErrMissingIdentifier   = &AppError{Type: ErrTypeMissingIdentifier}
	ErrStorage             = &AppError{Type: ErrTypeStorage}
	ErrValidation          = &AppError{Type: ErrTypeValidation}
	ErrConfig              = &AppError{Type: ErrTypeConfig}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface. Context keys are appended in sorted
// order so the message names the offending value and column.
func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches a sentinel of the same type
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogAttrs flattens the error for structured logging
func (e *AppError) LogAttrs() []any {
	attrs := []any{"error_type", string(e.Type)}
	for k, v := range e.Context {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewSchemaError reports input that does not match the fixed table layout
func NewSchemaError(message string) *AppError {
	return NewAppError(ErrTypeSchema, message, nil)
}

// NewUnmappedCategoryError reports a categorical label with no lookup entry
func NewUnmappedCategoryError(label, column string, familyID int) *AppError {
	return NewAppError(ErrTypeUnmappedCategory, "categorical height has no imputation value", nil).
		WithContext("value", label).
		WithContext("column", column).
		WithContext("family_id", familyID)
}

// NewIdentifierCollisionError reports a duplicate family identifier
func NewIdentifierCollisionError(familyID int, message string) *AppError {
	return NewAppError(ErrTypeIdentifierCollision, message, nil).
		WithContext("family_id", familyID)
}

// NewMissingIdentifierError reports a family identifier absent from the input
func NewMissingIdentifierError(familyID int) *AppError {
	return NewAppError(ErrTypeMissingIdentifier, "family identifier not found in input", nil).
		WithContext("family_id", familyID)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

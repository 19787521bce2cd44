package operations

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
)

func TestOperationError(t *testing.T) {
	cause := apperrors.NewMissingIdentifierError(205)

	tests := []struct {
		name     string
		err      *OperationError
		wantType ErrorType
		wantMsg  string
	}{
		{
			name:     "validation",
			err:      NewValidationError("reindex", "bad target"),
			wantType: ErrorTypeValidation,
			wantMsg:  "[validation] reindex: bad target",
		},
		{
			name:     "missing input",
			err:      NewMissingInputError("reshape", []string{"a.csv", "b.csv"}),
			wantType: ErrorTypeMissingInput,
			wantMsg:  "[missing_input] reshape: required input not found: a.csv, b.csv",
		},
		{
			name:     "execution keeps the cause",
			err:      NewExecutionError("reindex", cause),
			wantType: ErrorTypeExecution,
			wantMsg:  "[execution] reindex: step execution failed: " + cause.Error(),
		},
		{
			name:     "not found",
			err:      NewNotFoundError("plot"),
			wantType: ErrorTypeNotFound,
			wantMsg:  "[not_found] plot: step not registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	err := fmt.Errorf("run failed: %w", NewExecutionError("reindex", apperrors.NewMissingIdentifierError(205)))

	assert.True(t, errors.Is(err, apperrors.ErrMissingIdentifier))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(err))
	assert.Equal(t, "reindex", FailedStep(err))

	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
	assert.Empty(t, FailedStep(nil))

	var nilErr *OperationError
	assert.Equal(t, "unknown operation error", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

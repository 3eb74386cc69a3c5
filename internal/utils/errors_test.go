package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "test error message"}
	assert.Equal(t, "test error message", err.Error())

	err = &ValidationError{Field: "actor_id", Message: "is required"}
	assert.Equal(t, "actor_id: is required", err.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("text", "no asset found")

	assert.Error(t, err)
	assert.Equal(t, "text: no asset found", err.Error())

	validationErr, ok := err.(*ValidationError)
	assert.True(t, ok)
	assert.Equal(t, "text", validationErr.Field)
	assert.Equal(t, "no asset found", validationErr.Message)
}

func TestNewValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("timestamp", "must be positive, got %d", -5)

	assert.Equal(t, "timestamp: must be positive, got -5", err.Error())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("a", "b")))
	assert.True(t, IsValidationError(fmt.Errorf("wrapped: %w", NewValidationError("a", "b"))))
	assert.False(t, IsValidationError(fmt.Errorf("plain")))
	assert.False(t, IsValidationError(nil))
}

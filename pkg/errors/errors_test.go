package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentityForErrorsIs(t *testing.T) {
	cloned := Clone(ErrTrialTerminal, "trial was cancelled")
	wrapped := fmt.Errorf("cancel: %w", cloned)

	assert.True(t, errors.Is(wrapped, ErrTrialTerminal))
	assert.False(t, errors.Is(wrapped, ErrValidation))
	assert.Equal(t, "trial was cancelled", FromError(wrapped).Message)
}

func TestFromErrorWrapsPlainErrors(t *testing.T) {
	err := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, ErrInternal.Status, err.Status)
	assert.Nil(t, FromError(nil))
}

func TestFieldError(t *testing.T) {
	err := FieldError("trialStudentName", "trial student name is required")
	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, "trialStudentName", err.Field)
	assert.Empty(t, ErrValidation.Field)
}

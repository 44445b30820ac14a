package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrNotReviewerTurn, "class coordinator already decided")
	require.True(t, errors.Is(err, ErrNotReviewerTurn))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "class coordinator already decided", err.Message)
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestFromErrorWrapsPlainErrors(t *testing.T) {
	plain := fmt.Errorf("boom")
	appErr := FromError(plain)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.True(t, errors.Is(appErr, plain))

	wrapped := fmt.Errorf("decide: %w", Clone(ErrInvalidClass, ""))
	assert.Equal(t, ErrInvalidClass.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}

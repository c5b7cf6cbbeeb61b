package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNotFound, "contract not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches nested code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeGenerationFailed, "artifact write failed")
		outer := fmt.Errorf("handle message: %w", Wrap(inner, CodeInternal, "worker failed"))
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeGenerationFailed))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeGenerationFailed, "persist contract")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeGenerationFailed, CodeOf(err))
	assert.Equal(t, "persist contract", MessageOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

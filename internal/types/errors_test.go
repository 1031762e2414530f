package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(KindValidation, "bet below table minimum")
	assert.Equal(t, "VALIDATION: bet below table minimum", err.Error())

	wrapped := WrapError(KindTransientStore, "saving session", errors.New("i/o timeout"))
	assert.Equal(t, "TRANSIENT_STORE: saving session (i/o timeout)", wrapped.Error())
	assert.EqualError(t, wrapped.Unwrap(), "i/o timeout")
}

func TestIsKind(t *testing.T) {
	err := NewError(KindInsufficientFunds, "have 50, need 100")

	assert.True(t, IsKind(err, KindInsufficientFunds))
	assert.False(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(nil, KindValidation))
	assert.False(t, IsKind(errors.New("plain"), KindValidation))
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := NewError(KindInvalidSessionState, "session already completed")
	outer := fmt.Errorf("settle: %w", inner)

	assert.True(t, IsKind(outer, KindInvalidSessionState))
	assert.Equal(t, KindInvalidSessionState, KindOf(outer))
}

func TestKindOfUntagged(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

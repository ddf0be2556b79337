package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ridehail/internal/repository"
)

func TestRetryable_OnlyConflicts(t *testing.T) {
	assert.True(t, Retryable(ErrConflict))
	assert.True(t, Retryable(errorf(KindConflict, "ride changed concurrently")))

	assert.False(t, Retryable(ErrValidation))
	assert.False(t, Retryable(ErrNotFound))
	assert.False(t, Retryable(ErrInvalidTransition))
	assert.False(t, Retryable(ErrInsufficientFunds))
	assert.False(t, Retryable(ErrDuplicateOperation))
	assert.False(t, Retryable(ErrNoDriverAvailable))
	assert.False(t, Retryable(repository.ErrSerialization))
}

func TestFromRepository_SerializationBecomesRetryableConflict(t *testing.T) {
	err := fromRepository(repository.ErrSerialization)

	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, Retryable(err))
}

func TestFromRepository_Mapping(t *testing.T) {
	assert.ErrorIs(t, fromRepository(repository.ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, fromRepository(repository.ErrDuplicate), ErrDuplicateOperation)
	assert.NoError(t, fromRepository(nil))
}

package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_CompleteIsIdempotent(t *testing.T) {
	tr := Transaction{UUID: uuid.New(), Status: StatusPending}
	first := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, tr.MarkProcessing())
	require.NoError(t, tr.MarkCompleted(first, "MMMVO123456"))
	require.NotNil(t, tr.CompletedAt)

	require.NoError(t, tr.MarkCompleted(first.Add(time.Hour), "OTHER"))
	assert.Equal(t, first, *tr.CompletedAt)
	assert.Equal(t, "MMMVO123456", tr.MobileMoneyReference)
	assert.True(t, tr.IsTerminal())
}

func TestTransaction_TerminalStatesRejectTransitions(t *testing.T) {
	failed := Transaction{UUID: uuid.New(), Status: StatusProcessing}
	require.NoError(t, failed.MarkFailed("provider timeout"))
	assert.Equal(t, "provider timeout", failed.FailureReason)

	assert.ErrorIs(t, failed.MarkCompleted(time.Now(), ""), ErrInvalidTransition)
	assert.ErrorIs(t, failed.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, failed.MarkFailed("again"), ErrInvalidTransition)
	assert.ErrorIs(t, failed.MarkProcessing(), ErrInvalidTransition)

	completed := Transaction{UUID: uuid.New(), Status: StatusPending}
	require.NoError(t, completed.MarkCompleted(time.Now(), ""))
	assert.ErrorIs(t, completed.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, completed.MarkFailed("late"), ErrInvalidTransition)

	cancelled := Transaction{UUID: uuid.New(), Status: StatusPending}
	require.NoError(t, cancelled.Cancel())
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.ErrorIs(t, cancelled.MarkCompleted(time.Now(), ""), ErrInvalidTransition)
}

func TestTransaction_TotalDebited(t *testing.T) {
	tr := Transaction{Amount: dec("50000"), Fee: dec("2500")}
	assert.True(t, tr.TotalDebited().Equal(dec("52500")))
}

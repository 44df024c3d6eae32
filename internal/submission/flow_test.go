package submission

import (
	"context"
	"testing"

	"form-connectors/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_Transitions(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(logger.NewTestLogger(t))
	assert.Equal(t, StateIdle, f.State())

	require.NoError(t, f.Fire(ctx, EventSubmit))
	assert.Equal(t, StateAwaitingConfirmation, f.State())

	require.NoError(t, f.Fire(ctx, EventCancel))
	assert.Equal(t, StateIdle, f.State())

	require.NoError(t, f.Fire(ctx, EventExecute))
	assert.True(t, f.Is(StateExecuting))
	assert.False(t, f.Can(EventSubmit))

	require.NoError(t, f.Fire(ctx, EventComplete))
	assert.Equal(t, StateIdle, f.State())
}

func TestFlow_RejectsInvalidEvents(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(nil)

	assert.Error(t, f.Fire(ctx, EventConfirm))
	assert.Error(t, f.Fire(ctx, EventComplete))
	assert.Equal(t, StateIdle, f.State())
}

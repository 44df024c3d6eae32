package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"form-connectors/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), fastRetry, "complete-job", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return stderrors.New("rpc error: code = Unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), fastRetry, "complete-job", func(ctx context.Context) error {
		calls++
		return stderrors.New("job not found")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, errors.ErrCodeResourceNotFound, errors.Normalize(err).Code)
}

func TestExecuteWithRetry_MapsExhaustedTimeouts(t *testing.T) {
	err := ExecuteWithRetry(context.Background(), fastRetry, "complete-job", func(ctx context.Context) error {
		return stderrors.New("context deadline exceeded")
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTimeout, errors.Normalize(err).Code)
}

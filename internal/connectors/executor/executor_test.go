package executor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"form-connectors/internal/connectors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestRequest(bindingID, typeID, payload string) Request {
	return Request{
		BindingID:       bindingID,
		Label:           "Label " + bindingID,
		ConnectorTypeID: typeID,
		ConnectorID:     "conn-" + bindingID,
		Payload:         payload,
	}
}

// ==========================
// ExecuteAll
// ==========================

func TestExecuteAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, req Request) Result {
		if req.BindingID == "connector-1" {
			time.Sleep(20 * time.Millisecond)
		}
		if req.BindingID == "connector-2" {
			return errorResult(req, "boom")
		}
		return okResult(req, nil)
	})

	reqs := []Request{
		createTestRequest("connector-1", connectors.TypeWebhook, "{}"),
		createTestRequest("connector-2", connectors.TypeWebhook, "{}"),
		createTestRequest("connector-3", connectors.TypeWebhook, "{}"),
	}

	results, err := ExecuteAll(context.Background(), exec, reqs, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "connector-1", results[0].BindingID)
	assert.True(t, results[0].OK())
	assert.Equal(t, StatusError, results[1].Status)
	assert.Equal(t, "boom", results[1].Message)
	assert.Equal(t, "Label connector-2", results[1].Label)
	assert.True(t, results[2].OK())
}

func TestExecuteAll_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	exec := ExecutorFunc(func(ctx context.Context, req Request) Result {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return okResult(req, nil)
	})

	reqs := make([]Request, 8)
	for i := range reqs {
		reqs[i] = createTestRequest(string(rune('a'+i)), connectors.TypeIndex, "{}")
	}

	results, err := ExecuteAll(context.Background(), exec, reqs, 2)
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExecuteAll_RecoversPanics(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, req Request) Result {
		if req.BindingID == "connector-1" {
			panic("nil map")
		}
		return okResult(req, nil)
	})

	reqs := []Request{
		createTestRequest("connector-1", connectors.TypeWebhook, "{}"),
		createTestRequest("connector-2", connectors.TypeWebhook, "{}"),
	}

	results, err := ExecuteAll(context.Background(), exec, reqs, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connector-1")
	assert.Equal(t, StatusError, results[0].Status)
	assert.True(t, results[1].OK(), "other bindings still run")
}

func TestExecuteAll_Empty(t *testing.T) {
	results, err := ExecuteAll(context.Background(), ExecutorFunc(func(ctx context.Context, req Request) Result {
		t.Fatal("should not be called")
		return Result{}
	}), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestParseDocuments(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr string
	}{
		{name: "single object", payload: `{"a":1}`, want: 1},
		{name: "array", payload: `[{"a":1},{"a":2}]`, want: 2},
		{name: "scalar", payload: `42`, wantErr: "payload must be a JSON object or an array of objects"},
		{name: "broken", payload: `{"a":`, wantErr: "payload is not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, failed := parseDocuments(createTestRequest("connector-1", connectors.TypeIndex, tt.payload))
			if tt.wantErr != "" {
				require.NotNil(t, failed)
				assert.Contains(t, failed.Message, tt.wantErr)
				return
			}
			require.Nil(t, failed)
			assert.Len(t, docs, tt.want)
		})
	}
}

package executor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpclient "form-connectors/internal/common/http"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/connectors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) Index(ctx context.Context, index string, docs []interface{}) (int, error) {
	args := m.Called(ctx, index, docs)
	return args.Int(0), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg EmailMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

// ==========================
// Tests
// ==========================

func TestDirectExecutor_Index(t *testing.T) {
	indexer := new(MockIndexer)
	indexer.On("Index", mock.Anything, "form-submissions", []interface{}{
		map[string]interface{}{"a": float64(1)},
		map[string]interface{}{"a": float64(2)},
	}).Return(2, nil)

	exec := NewDirectExecutor(indexer, nil, nil, logger.NewTestLogger(t))
	req := createTestRequest("connector-1", connectors.TypeIndex, `[{"a":1},{"a":2}]`)
	req.ConnectorConfig = map[string]interface{}{"index": "form-submissions"}

	res := exec.Execute(context.Background(), req)

	require.True(t, res.OK(), res.Message)
	assert.Equal(t, map[string]interface{}{"index": "form-submissions", "indexed": 2}, res.Data)
	indexer.AssertExpectations(t)
}

func TestDirectExecutor_IndexFailures(t *testing.T) {
	indexer := new(MockIndexer)
	indexer.On("Index", mock.Anything, "broken", mock.Anything).Return(0, errors.New("cluster red"))
	exec := NewDirectExecutor(indexer, nil, nil, logger.NewTestLogger(t))

	req := createTestRequest("connector-1", connectors.TypeIndex, `{}`)
	res := exec.Execute(context.Background(), req)
	assert.Contains(t, res.Message, "has no index configured")

	req.ConnectorConfig = map[string]interface{}{"index": "broken"}
	res = exec.Execute(context.Background(), req)
	assert.Equal(t, "indexing failed: cluster red", res.Message)
}

func TestDirectExecutor_Email(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("Send", mock.Anything, EmailMessage{
		To:      []string{"ops@example.com"},
		Subject: "Incident",
		Message: "disk full",
	}).Return("msg-1", nil)

	exec := NewDirectExecutor(nil, mailer, nil, logger.NewTestLogger(t))
	res := exec.Execute(context.Background(), createTestRequest("connector-1", connectors.TypeEmail,
		`{"to":["ops@example.com"],"subject":"Incident","message":"disk full"}`))

	require.True(t, res.OK(), res.Message)
	assert.Equal(t, map[string]interface{}{"messageId": "msg-1"}, res.Data)
	mailer.AssertExpectations(t)
}

func TestDirectExecutor_EmailRejections(t *testing.T) {
	mailer := new(MockMailer)
	exec := NewDirectExecutor(nil, mailer, nil, logger.NewTestLogger(t))

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "attachments", payload: `{"to":["a@b.c"],"subject":"s","message":"m","attachments":[]}`, want: "attachments are not supported"},
		{name: "no recipients", payload: `{"subject":"s","message":"m"}`, want: "email has no recipients"},
		{name: "not an object", payload: `["a@b.c"]`, want: "payload must be a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := exec.Execute(context.Background(), createTestRequest("connector-1", connectors.TypeEmail, tt.payload))
			assert.Equal(t, StatusError, res.Status)
			assert.Contains(t, res.Message, tt.want)
		})
	}
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDirectExecutor_Webhook(t *testing.T) {
	var gotMethod, gotBody, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotMethod, gotBody, gotHeader = r.Method, string(body), r.Header.Get("X-Token")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	exec := NewDirectExecutor(nil, nil, httpclient.NewClient(5*time.Second), logger.NewTestLogger(t))
	req := createTestRequest("connector-1", connectors.TypeWebhook, `{"body":"hi"}`)
	req.ConnectorConfig = map[string]interface{}{
		"url":     server.URL + "/hook",
		"method":  "put",
		"headers": map[string]interface{}{"X-Token": "t0k"},
	}

	res := exec.Execute(context.Background(), req)

	require.True(t, res.OK(), res.Message)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, `{"body":"hi"}`, gotBody)
	assert.Equal(t, "t0k", gotHeader)
}

func TestDirectExecutor_WebhookErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	exec := NewDirectExecutor(nil, nil, httpclient.NewClient(5*time.Second), nil)
	req := createTestRequest("connector-1", connectors.TypeWebhook, `{}`)
	req.ConnectorConfig = map[string]interface{}{"url": server.URL}

	res := exec.Execute(context.Background(), req)
	assert.Equal(t, "webhook responded with status 502", res.Message)
}

func TestDirectExecutor_UnsupportedAndUnconfigured(t *testing.T) {
	exec := NewDirectExecutor(nil, nil, nil, nil)

	res := exec.Execute(context.Background(), createTestRequest("connector-1", connectors.TypeJira, `{}`))
	assert.Contains(t, res.Message, "not supported for direct delivery")

	res = exec.Execute(context.Background(), createTestRequest("connector-2", connectors.TypeIndex, `{}`))
	assert.Equal(t, "index delivery is not configured", res.Message)

	res = exec.Execute(context.Background(), createTestRequest("connector-3", connectors.TypeWebhook, ""))
	assert.Equal(t, "payload is empty", res.Message)
}

func TestDirectExecutor_UnsupportedTypeReportedFirst(t *testing.T) {
	exec := NewDirectExecutor(nil, nil, nil, nil)

	req := createTestRequest("connector-1", connectors.TypeTeams, "")
	req.ConnectorID = ""
	res := exec.Execute(context.Background(), req)

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "not supported for direct delivery")
}

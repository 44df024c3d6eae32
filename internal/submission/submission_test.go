package submission

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/common/observability"
	"form-connectors/internal/connectors"
	"form-connectors/internal/connectors/executor"
	"form-connectors/internal/form"
	"form-connectors/internal/notify"
	"form-connectors/internal/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type recordingExecutor struct {
	mu       sync.Mutex
	requests []executor.Request
	fail     map[string]string
	gate     chan struct{}
	entered  chan struct{}
}

func (r *recordingExecutor) Execute(ctx context.Context, req executor.Request) executor.Result {
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	res := executor.Result{BindingID: req.BindingID, Label: req.Label, ConnectorID: req.ConnectorID, Status: executor.StatusOK}
	if msg, ok := r.fail[req.BindingID]; ok {
		res.Status = executor.StatusError
		res.Message = msg
	}
	return res
}

func createTestSnapshot() Snapshot {
	cfg := form.NewDefaultFormConfig()
	cfg.Connectors = []form.ConnectorBinding{
		{ID: "connector-1", ConnectorTypeID: connectors.TypeWebhook, ConnectorID: "wh-1", Label: "Ops webhook",
			DocumentTemplate: `{"body":"{{message}}","at":"{{__submission_timestamp__}}"}`},
		{ID: "connector-2", ConnectorTypeID: connectors.TypeIndex, ConnectorID: "idx-1", Label: "",
			DocumentTemplate: `{"message":"{{message}}"}`},
	}
	return Snapshot{
		Config: cfg,
		Values: form.FieldValues{"field-1": "hi"},
		Catalog: form.Catalog{Connectors: []form.Connector{
			{ID: "idx-1", ConnectorTypeID: connectors.TypeIndex, Config: map[string]interface{}{"index": "forms"}},
		}},
	}
}

func newTestSubmitter(t *testing.T, exec executor.Executor) (*Submitter, *notify.MemorySink) {
	t.Helper()
	sink := notify.NewMemorySink()
	orch := NewOrchestrator(exec, 2, sink, observability.NewNoop(), logger.NewTestLogger(t))
	return NewSubmitter(orch, sink, logger.NewTestLogger(t)), sink
}

// ==========================
// Orchestrator
// ==========================

func TestBuildRequests_RendersTimestampAndConfig(t *testing.T) {
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.FixedZone("x", 3600))
	reqs := BuildRequests(createTestSnapshot(), at)

	require.Len(t, reqs, 2)
	assert.Equal(t, `{"body":"hi","at":"2026-05-04T02:02:01Z"}`, reqs[0].Payload)
	assert.Equal(t, "Connector 2", reqs[1].Label)
	assert.Equal(t, map[string]interface{}{"index": "forms"}, reqs[1].ConnectorConfig)
	assert.Nil(t, reqs[0].ConnectorConfig)
}

func TestOrchestrator_NotifiesPerBinding(t *testing.T) {
	exec := &recordingExecutor{fail: map[string]string{"connector-2": "index_not_found"}}
	sink := notify.NewMemorySink()
	orch := NewOrchestrator(exec, 0, sink, nil, logger.NewTestLogger(t))

	out, err := orch.Execute(context.Background(), createTestSnapshot())

	require.NoError(t, err)
	assert.NotEmpty(t, out.SubmissionID)
	assert.Equal(t, 1, out.Succeeded)
	assert.Equal(t, 1, out.Failed)

	notes := sink.Drain()
	require.Len(t, notes, 2)
	assert.Equal(t, notify.KindSuccess, notes[0].Kind)
	assert.Equal(t, "Ops webhook executed", notes[0].Title)
	assert.Equal(t, notify.KindDanger, notes[1].Kind)
	assert.Equal(t, "index_not_found", notes[1].Text)
}

func TestOrchestrator_AggregateNotificationOnUnexpectedFailure(t *testing.T) {
	exec := executor.ExecutorFunc(func(ctx context.Context, req executor.Request) executor.Result {
		panic("unexpected")
	})
	sink := notify.NewMemorySink()
	orch := NewOrchestrator(exec, 1, sink, nil, logger.NewTestLogger(t))

	out, err := orch.Execute(context.Background(), createTestSnapshot())

	require.Error(t, err)
	assert.Equal(t, 2, out.Failed)
	notes := sink.Drain()
	require.Len(t, notes, 3)
	assert.Equal(t, "Submission failed", notes[2].Title)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, outcomeOf(Outcome{Succeeded: 2}, nil))
	assert.Equal(t, OutcomePartial, outcomeOf(Outcome{Succeeded: 1, Failed: 1}, nil))
	assert.Equal(t, OutcomeFailed, outcomeOf(Outcome{Failed: 2}, nil))
	assert.Equal(t, OutcomeError, outcomeOf(Outcome{Succeeded: 2}, assert.AnError))
}

// ==========================
// Submitter
// ==========================

func TestSubmitter_ExecutesImmediately(t *testing.T) {
	exec := &recordingExecutor{}
	s, sink := newTestSubmitter(t, exec)

	out, err := s.Submit(context.Background(), createTestSnapshot(), form.DerivedState{})

	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, StateIdle, s.State())
	assert.Len(t, sink.Drain(), 2)
}

func TestSubmitter_Guards(t *testing.T) {
	t.Run("blocked", func(t *testing.T) {
		s, _ := newTestSubmitter(t, &recordingExecutor{})
		_, err := s.Submit(context.Background(), createTestSnapshot(), form.DerivedState{IsSubmitDisabled: true, HasEmptyRequiredFields: true})
		assert.True(t, errors.HasCode(err, errors.ErrCodeSubmissionBlocked))
	})

	t.Run("no connectors", func(t *testing.T) {
		s, sink := newTestSubmitter(t, &recordingExecutor{})
		snap := createTestSnapshot()
		snap.Config.Connectors = nil

		_, err := s.Submit(context.Background(), snap, form.DerivedState{})

		assert.True(t, errors.HasCode(err, errors.ErrCodeNoConnectors))
		notes := sink.Drain()
		require.Len(t, notes, 1)
		assert.Equal(t, notify.KindWarning, notes[0].Kind)
		assert.Equal(t, StateIdle, s.State())
	})

	t.Run("in flight", func(t *testing.T) {
		exec := &recordingExecutor{gate: make(chan struct{}), entered: make(chan struct{}, 2)}
		s, _ := newTestSubmitter(t, exec)

		done := make(chan error, 1)
		go func() {
			_, err := s.Submit(context.Background(), createTestSnapshot(), form.DerivedState{})
			done <- err
		}()
		<-exec.entered
		assert.True(t, s.IsExecuting())

		_, err := s.Submit(context.Background(), createTestSnapshot(), form.DerivedState{})
		assert.True(t, errors.HasCode(err, errors.ErrCodeSubmissionInFlight))

		close(exec.gate)
		require.NoError(t, <-done)
		assert.Equal(t, StateIdle, s.State())
	})
}

func TestSubmitter_ConfirmationFlow(t *testing.T) {
	exec := &recordingExecutor{}
	s, _ := newTestSubmitter(t, exec)
	snap := createTestSnapshot()
	snap.Config.RequireConfirmationOnSubmit = true
	ctx := context.Background()

	out, err := s.Submit(ctx, snap, form.DerivedState{})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, StateAwaitingConfirmation, s.State())
	assert.Empty(t, exec.requests)

	s.Cancel(ctx)
	assert.Equal(t, StateIdle, s.State())
	_, err = s.Confirm(ctx)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	_, err = s.Submit(ctx, snap, form.DerivedState{})
	require.NoError(t, err)
	out, err = s.Confirm(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, StateIdle, s.State())
	assert.True(t, strings.Contains(exec.requests[0].Payload, `"body":"hi"`))
}

// ==========================
// Saved forms
// ==========================

type stubSource struct {
	types []form.ConnectorType
	conns []form.Connector
}

func (s stubSource) LoadActionTypes(ctx context.Context) ([]form.ConnectorType, error) {
	return s.types, nil
}

func (s stubSource) LoadAllActions(ctx context.Context) ([]form.Connector, error) {
	return s.conns, nil
}

func saveTestForm(t *testing.T, repo *persistence.MemoryRepository) persistence.SavedObject {
	t.Helper()
	snap := createTestSnapshot()
	obj, err := repo.Create(context.Background(), form.Serialize(snap.Config))
	require.NoError(t, err)
	return obj
}

func newTestRunner(t *testing.T, exec executor.Executor, repo persistence.Repository) *SavedFormRunner {
	t.Helper()
	source := stubSource{
		types: []form.ConnectorType{{ID: "webhook", Name: "Webhook"}, {ID: "index", Name: "Index"}},
		conns: []form.Connector{
			{ID: "wh-1", Name: "Ops webhook", ConnectorTypeID: "webhook"},
			{ID: "idx-1", Name: "Form index", ConnectorTypeID: "index", Config: map[string]interface{}{"index": "forms"}},
		},
	}
	orch := NewOrchestrator(exec, 2, nil, observability.NewNoop(), logger.NewTestLogger(t))
	return NewSavedFormRunner(repo, source, nil, orch, logger.NewTestLogger(t))
}

func TestSavedFormRunner_Run(t *testing.T) {
	repo := persistence.NewMemoryRepository()
	obj := saveTestForm(t, repo)
	exec := &recordingExecutor{}

	out, err := newTestRunner(t, exec, repo).Run(context.Background(), obj.ID, map[string]interface{}{"message": "disk full"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Succeeded)

	require.Len(t, exec.requests, 2)
	for _, req := range exec.requests {
		assert.Contains(t, req.Payload, "disk full")
		if req.ConnectorID == "idx-1" {
			assert.Equal(t, "forms", req.ConnectorConfig["index"])
		}
	}
}

func TestSavedFormRunner_BlockedWhenRequiredMissing(t *testing.T) {
	repo := persistence.NewMemoryRepository()
	obj := saveTestForm(t, repo)
	exec := &recordingExecutor{}

	_, err := newTestRunner(t, exec, repo).Run(context.Background(), obj.ID, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSubmissionBlocked))
	assert.Empty(t, exec.requests)
}

func TestSavedFormRunner_UnknownForm(t *testing.T) {
	_, err := newTestRunner(t, &recordingExecutor{}, persistence.NewMemoryRepository()).Run(context.Background(), "missing", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFormNotFound))
}

func TestValuesFromInput(t *testing.T) {
	cfg := form.NewDefaultFormConfig()
	cfg.Fields = append(cfg.Fields, form.FormField{ID: "field-2", Key: "count", DataType: form.DataTypeNumber})

	values := ValuesFromInput(cfg, map[string]interface{}{
		"field-1": "by id",
		"message": "by key",
		"count":   float64(3),
		"other":   "dropped",
	})

	assert.Equal(t, form.FieldValues{"field-1": "by key", "field-2": "3"}, values)
}

func TestValuesFromInput_NumbersStayDecimal(t *testing.T) {
	cfg := form.NewDefaultFormConfig()
	cfg.Fields = append(cfg.Fields, form.FormField{ID: "field-2", Key: "amount", DataType: form.DataTypeNumber})

	tests := []struct {
		in   interface{}
		want string
	}{
		{in: float64(12345678), want: "12345678"},
		{in: 1.5e21, want: "1500000000000000000000"},
		{in: 0.000001, want: "0.000001"},
		{in: -2.25, want: "-2.25"},
		{in: true, want: "true"},
	}
	for _, tt := range tests {
		values := ValuesFromInput(cfg, map[string]interface{}{"amount": tt.in})
		assert.Equal(t, tt.want, values["field-2"], "input %v", tt.in)
	}
}

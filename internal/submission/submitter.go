package submission

import (
	"context"
	"sync"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/form"
	"form-connectors/internal/notify"
)

// Submitter guards one editing session's submissions: at most one executes at
// a time, and forms that require confirmation wait for Confirm.
type Submitter struct {
	orch   *Orchestrator
	sink   notify.Sink
	logger logger.Logger

	mu      sync.Mutex
	flow    *Flow
	pending *Snapshot
}

func NewSubmitter(orch *Orchestrator, sink notify.Sink, log logger.Logger) *Submitter {
	if sink == nil {
		sink = notify.MultiSink{}
	}
	return &Submitter{
		orch:   orch,
		sink:   sink,
		logger: logger.Component(log, "submitter"),
		flow:   NewFlow(log),
	}
}

func (s *Submitter) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.State()
}

func (s *Submitter) IsExecuting() bool {
	return s.State() == StateExecuting
}

// Submit returns a nil Outcome when the submission is waiting for confirmation.
func (s *Submitter) Submit(ctx context.Context, snap Snapshot, ds form.DerivedState) (*Outcome, error) {
	s.mu.Lock()
	if s.flow.Is(StateExecuting) {
		s.mu.Unlock()
		return nil, errors.NewSubmissionInFlightError()
	}
	if ds.IsSubmitDisabled {
		s.mu.Unlock()
		return nil, errors.NewSubmissionBlockedError(blockedReason(ds))
	}
	if len(snap.Config.Connectors) == 0 {
		s.mu.Unlock()
		s.sink.Notify(ctx, notify.Warning("No connectors configured", "Add a connector before submitting the form."))
		return nil, errors.NewNoConnectorsError()
	}

	if snap.Config.RequireConfirmationOnSubmit {
		if s.flow.Is(StateIdle) {
			if err := s.flow.Fire(ctx, EventSubmit); err != nil {
				s.mu.Unlock()
				return nil, errors.NewInternalError(err)
			}
		}
		s.pending = &snap
		s.mu.Unlock()
		return nil, nil
	}

	if s.flow.Is(StateAwaitingConfirmation) {
		s.pending = nil
		if err := s.flow.Fire(ctx, EventCancel); err != nil {
			s.mu.Unlock()
			return nil, errors.NewInternalError(err)
		}
	}
	if err := s.flow.Fire(ctx, EventExecute); err != nil {
		s.mu.Unlock()
		return nil, errors.NewInternalError(err)
	}
	s.mu.Unlock()

	return s.run(ctx, snap)
}

// Confirm executes the submission that is awaiting confirmation.
func (s *Submitter) Confirm(ctx context.Context) (*Outcome, error) {
	s.mu.Lock()
	if s.flow.Is(StateExecuting) {
		s.mu.Unlock()
		return nil, errors.NewSubmissionInFlightError()
	}
	if !s.flow.Is(StateAwaitingConfirmation) || s.pending == nil {
		s.mu.Unlock()
		return nil, errors.NewInvalidInputError("no submission is awaiting confirmation")
	}
	snap := *s.pending
	s.pending = nil
	if err := s.flow.Fire(ctx, EventConfirm); err != nil {
		s.mu.Unlock()
		return nil, errors.NewInternalError(err)
	}
	s.mu.Unlock()

	return s.run(ctx, snap)
}

// Cancel drops a pending confirmation. It is a no-op in any other state.
func (s *Submitter) Cancel(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.flow.Is(StateAwaitingConfirmation) {
		return
	}
	s.pending = nil
	_ = s.flow.Fire(ctx, EventCancel)
}

func (s *Submitter) run(ctx context.Context, snap Snapshot) (*Outcome, error) {
	defer func() {
		s.mu.Lock()
		if err := s.flow.Fire(context.Background(), EventComplete); err != nil {
			s.logger.Error("submission state not reset", map[string]interface{}{"error": err.Error()})
		}
		s.mu.Unlock()
	}()

	out, err := s.orch.Execute(ctx, snap)
	if err != nil {
		return &out, errors.NewConnectorExecutionError("", err)
	}
	return &out, nil
}

func blockedReason(ds form.DerivedState) string {
	switch {
	case ds.HasEmptyRequiredFields:
		return "required fields are empty"
	case ds.HasFieldValidationWarnings:
		return "some fields have validation warnings"
	default:
		return "a submission is in progress"
	}
}

// Package submission runs a form's connector executions and guards the
// confirm-then-execute lifecycle.
package submission

import (
	"context"

	"form-connectors/internal/common/logger"

	"github.com/looplab/fsm"
)

const (
	StateIdle                 = "idle"
	StateAwaitingConfirmation = "awaiting_confirmation"
	StateExecuting            = "executing"
)

const (
	EventSubmit   = "submit"
	EventConfirm  = "confirm"
	EventExecute  = "execute"
	EventCancel   = "cancel"
	EventComplete = "complete"
)

// Flow is the submission state machine. It is not safe for concurrent use;
// Submitter serializes access.
type Flow struct {
	fsm    *fsm.FSM
	logger logger.Logger
}

func NewFlow(log logger.Logger) *Flow {
	f := &Flow{logger: logger.Component(log, "submission-flow")}
	f.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventSubmit, Src: []string{StateIdle}, Dst: StateAwaitingConfirmation},
			{Name: EventConfirm, Src: []string{StateAwaitingConfirmation}, Dst: StateExecuting},
			{Name: EventExecute, Src: []string{StateIdle}, Dst: StateExecuting},
			{Name: EventCancel, Src: []string{StateAwaitingConfirmation}, Dst: StateIdle},
			{Name: EventComplete, Src: []string{StateExecuting}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				f.logger.Debug("submission state changed", map[string]interface{}{
					"event": e.Event,
					"from":  e.Src,
					"to":    e.Dst,
				})
			},
		},
	)
	return f
}

func (f *Flow) State() string { return f.fsm.Current() }

func (f *Flow) Is(state string) bool { return f.fsm.Is(state) }

func (f *Flow) Can(event string) bool { return f.fsm.Can(event) }

// Fire applies event. It fails when the event is not valid in the current state.
func (f *Flow) Fire(ctx context.Context, event string) error {
	return f.fsm.Event(ctx, event)
}

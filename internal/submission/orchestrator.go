package submission

import (
	"context"
	"fmt"
	"time"

	"form-connectors/internal/common/logger"
	"form-connectors/internal/common/metrics"
	"form-connectors/internal/common/observability"
	"form-connectors/internal/connectors/executor"
	"form-connectors/internal/form"
	"form-connectors/internal/notify"

	"github.com/google/uuid"
)

const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomeError   = "error"
)

// Snapshot is the form state a submission executes against.
type Snapshot struct {
	Config  form.FormConfig
	Values  form.FieldValues
	Catalog form.Catalog
}

// Outcome summarizes one executed submission.
type Outcome struct {
	SubmissionID string            `json:"submissionId"`
	SubmittedAt  time.Time         `json:"submittedAt"`
	Results      []executor.Result `json:"results"`
	Succeeded    int               `json:"succeeded"`
	Failed       int               `json:"failed"`
}

// Orchestrator renders every binding, executes them all and reports the results.
type Orchestrator struct {
	exec        executor.Executor
	concurrency int
	sink        notify.Sink
	obs         *observability.Observability
	logger      logger.Logger
	now         func() time.Time
}

func NewOrchestrator(exec executor.Executor, concurrency int, sink notify.Sink, obs *observability.Observability, log logger.Logger) *Orchestrator {
	if sink == nil {
		sink = notify.MultiSink{}
	}
	return &Orchestrator{
		exec:        exec,
		concurrency: concurrency,
		sink:        sink,
		obs:         obs,
		logger:      logger.Component(log, "submission"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// BuildRequests renders each binding's template with the field values and the
// submission timestamp.
func BuildRequests(snap Snapshot, submittedAt time.Time) []executor.Request {
	extra := map[string]string{form.ReservedVariable: submittedAt.UTC().Format(time.RFC3339)}
	reqs := make([]executor.Request, 0, len(snap.Config.Connectors))
	for i, b := range snap.Config.Connectors {
		label := b.Label
		if label == "" {
			label = form.FallbackConnectorLabel(i)
		}
		req := executor.Request{
			BindingID:       b.ID,
			Label:           label,
			ConnectorTypeID: b.ConnectorTypeID,
			ConnectorID:     b.ConnectorID,
			Payload:         form.RenderConnectorPayload(b.DocumentTemplate, snap.Config.Fields, snap.Values, extra),
		}
		if conn, ok := snap.Catalog.ConnectorByID(b.ConnectorID); ok {
			req.ConnectorConfig = conn.Config
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// Execute always returns an Outcome. The error is non-nil only for failures
// outside individual connectors.
func (o *Orchestrator) Execute(ctx context.Context, snap Snapshot) (Outcome, error) {
	start := time.Now()
	out := Outcome{
		SubmissionID: uuid.New().String(),
		SubmittedAt:  o.now(),
	}

	reqs := BuildRequests(snap, out.SubmittedAt)
	results, err := executor.ExecuteAll(ctx, o.exec, reqs, o.concurrency)
	out.Results = results

	for _, res := range results {
		if res.OK() {
			out.Succeeded++
			o.sink.Notify(ctx, notify.Success(fmt.Sprintf("%s executed", res.Label), ""))
		} else {
			out.Failed++
			o.sink.Notify(ctx, notify.Danger(fmt.Sprintf("%s failed", res.Label), res.Message))
		}
	}

	outcome := outcomeOf(out, err)
	if err != nil {
		o.sink.Notify(ctx, notify.Danger("Submission failed", err.Error()))
		o.logger.Error("submission failed", map[string]interface{}{
			"submissionId": out.SubmissionID,
			"error":        err.Error(),
		})
	}

	metrics.Submissions.WithLabelValues(outcome).Inc()
	o.obs.RecordSubmission(ctx, outcome, time.Since(start))
	o.logger.Info("submission executed", map[string]interface{}{
		"submissionId": out.SubmissionID,
		"succeeded":    out.Succeeded,
		"failed":       out.Failed,
		"outcome":      outcome,
	})
	return out, err
}

func outcomeOf(out Outcome, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case out.Failed == 0:
		return OutcomeSuccess
	case out.Succeeded == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

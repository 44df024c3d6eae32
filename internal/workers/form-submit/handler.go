package formsubmit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"form-connectors/internal/common/camunda"
	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/common/metrics"
	"form-connectors/internal/submission"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "form-submit"
)

// Runner is satisfied by *submission.SavedFormRunner.
type Runner interface {
	Run(ctx context.Context, formID string, values map[string]interface{}) (submission.Outcome, error)
}

type Handler struct {
	config       *Config
	runner       Runner
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, runner Runner, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = logger.Component(log, "worker").WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		runner:       runner,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		err = errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		h.fail(ctx, client, job, err)
		return err
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return err
	}

	err = camunda.ExecuteWithRetry(ctx, nil, "complete-job", func(ctx context.Context) error {
		cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
		if err != nil {
			return err
		}
		if _, err := cmd.Send(ctx); err != nil {
			return err
		}
		h.logger.Info("job completed successfully", map[string]interface{}{
			"jobKey":       job.Key,
			"submissionId": output.SubmissionID,
		})
		return nil
	})
	if err == nil {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}
	return err
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.FormID) == "" {
		return nil, errors.NewInvalidInputError("formId is required")
	}

	out, err := h.runner.Run(ctx, input.FormID, input.FieldValues)
	if err != nil {
		return nil, err
	}

	output := &Output{
		SubmissionID: out.SubmissionID,
		SubmittedAt:  out.SubmittedAt.UTC().Format(time.RFC3339),
		Results:      make([]ConnectorResult, 0, len(out.Results)),
		Succeeded:    out.Succeeded,
		Failed:       out.Failed,
	}
	var failures []string
	for _, res := range out.Results {
		output.Results = append(output.Results, ConnectorResult{
			ConnectorID: res.ConnectorID,
			Label:       res.Label,
			Status:      string(res.Status),
			Message:     res.Message,
		})
		if !res.OK() {
			failures = append(failures, fmt.Sprintf("%s: %s", res.Label, res.Message))
		}
	}

	h.logger.Info("form submitted", map[string]interface{}{
		"formId":       input.FormID,
		"submissionId": output.SubmissionID,
		"succeeded":    output.Succeeded,
		"failed":       output.Failed,
	})

	if h.config.FailOnConnectorError && len(failures) > 0 {
		return nil, errors.NewConnectorExecutionError("", fmt.Errorf("%s", strings.Join(failures, "; "))).
			WithMetadata("submissionId", output.SubmissionID)
	}
	return output, nil
}

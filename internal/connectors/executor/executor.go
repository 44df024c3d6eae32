// Package executor delivers rendered connector payloads, either through the
// Kibana actions API or straight to the backing services.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"form-connectors/internal/common/metrics"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Request is one binding's rendered payload ready for delivery.
type Request struct {
	BindingID       string                 `json:"bindingId"`
	Label           string                 `json:"label"`
	ConnectorTypeID string                 `json:"connectorTypeId"`
	ConnectorID     string                 `json:"connectorId"`
	ConnectorConfig map[string]interface{} `json:"connectorConfig,omitempty"`
	Payload         string                 `json:"payload"`
}

// Result is the per-binding outcome. Delivery problems are reported here and
// never as Go errors.
type Result struct {
	BindingID       string      `json:"bindingId"`
	ConnectorID     string      `json:"connectorId"`
	Label           string      `json:"label"`
	ConnectorTypeID string      `json:"connectorTypeId"`
	Status          Status      `json:"status"`
	Message         string      `json:"message,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

func (r Result) OK() bool { return r.Status == StatusOK }

type Executor interface {
	Execute(ctx context.Context, req Request) Result
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req Request) Result

func (f ExecutorFunc) Execute(ctx context.Context, req Request) Result { return f(ctx, req) }

const (
	msgEmptyPayload = "payload is empty"
	msgNoConnector  = "connector is not selected"
)

func newResult(req Request) Result {
	return Result{
		BindingID:       req.BindingID,
		ConnectorID:     req.ConnectorID,
		Label:           req.Label,
		ConnectorTypeID: req.ConnectorTypeID,
	}
}

func okResult(req Request, data interface{}) Result {
	r := newResult(req)
	r.Status = StatusOK
	r.Data = data
	return r
}

func errorResult(req Request, format string, args ...interface{}) Result {
	r := newResult(req)
	r.Status = StatusError
	r.Message = fmt.Sprintf(format, args...)
	return r
}

// preflight rejects requests that can never be delivered.
func preflight(req Request) (Result, bool) {
	if strings.TrimSpace(req.ConnectorID) == "" {
		return errorResult(req, msgNoConnector), false
	}
	if strings.TrimSpace(req.Payload) == "" {
		return errorResult(req, msgEmptyPayload), false
	}
	return Result{}, true
}

func parsePayload(req Request) (interface{}, *Result) {
	var doc interface{}
	if err := json.Unmarshal([]byte(req.Payload), &doc); err != nil {
		res := errorResult(req, "payload is not valid JSON: %v", err)
		return nil, &res
	}
	return doc, nil
}

func parseObject(req Request) (map[string]interface{}, *Result) {
	doc, failed := parsePayload(req)
	if failed != nil {
		return nil, failed
	}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		res := errorResult(req, "payload must be a JSON object")
		return nil, &res
	}
	return obj, nil
}

// parseDocuments accepts a JSON array of documents or a single document.
func parseDocuments(req Request) ([]interface{}, *Result) {
	doc, failed := parsePayload(req)
	if failed != nil {
		return nil, failed
	}
	switch v := doc.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		return []interface{}{v}, nil
	default:
		res := errorResult(req, "payload must be a JSON object or an array of objects")
		return nil, &res
	}
}

// ExecuteAll runs every request with at most concurrency in flight and returns
// results in request order. A failing binding never stops the others; the
// returned error is non-nil only when an execution panicked.
func ExecuteAll(ctx context.Context, exec Executor, reqs []Request, concurrency int) ([]Result, error) {
	results := make([]Result, len(reqs))

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() (err error) {
			start := time.Now()
			defer func() {
				if r := recover(); r != nil {
					results[i] = errorResult(req, "connector execution failed unexpectedly")
					err = fmt.Errorf("connector %s panicked: %v", req.BindingID, r)
				}
				metrics.ConnectorExecutions.WithLabelValues(req.ConnectorTypeID, string(results[i].Status)).Inc()
				metrics.ConnectorExecutionDuration.WithLabelValues(req.ConnectorTypeID).Observe(time.Since(start).Seconds())
			}()

			results[i] = exec.Execute(ctx, req)
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

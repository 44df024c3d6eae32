package executor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	httpclient "form-connectors/internal/common/http"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/connectors"
)

// Indexer writes documents into an index.
type Indexer interface {
	Index(ctx context.Context, index string, docs []interface{}) (int, error)
}

// Mailer delivers a rendered email payload and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

// DirectExecutor delivers payloads without Kibana. Connector instances supply
// their target through Config: "index" for index connectors and "url" (plus
// optional "method" and "headers") for webhooks.
type DirectExecutor struct {
	indexer Indexer
	mailer  Mailer
	client  *httpclient.Client
	logger  logger.Logger
}

// NewDirectExecutor accepts nil backends; bindings whose backend is missing fail.
func NewDirectExecutor(indexer Indexer, mailer Mailer, client *httpclient.Client, log logger.Logger) *DirectExecutor {
	return &DirectExecutor{
		indexer: indexer,
		mailer:  mailer,
		client:  client,
		logger:  logger.Component(log, "direct-executor"),
	}
}

func (e *DirectExecutor) Execute(ctx context.Context, req Request) Result {
	var deliver func(context.Context, Request) Result
	switch connectors.Canonicalize(req.ConnectorTypeID) {
	case connectors.TypeIndex:
		deliver = e.index
	case connectors.TypeEmail:
		deliver = e.email
	case connectors.TypeWebhook:
		deliver = e.webhook
	}

	var res Result
	if deliver == nil {
		res = errorResult(req, "connector type %q is not supported for direct delivery", req.ConnectorTypeID)
	} else if pre, ok := preflight(req); !ok {
		res = pre
	} else {
		res = deliver(ctx, req)
	}

	fields := map[string]interface{}{
		"connectorBindingId": req.BindingID,
		"connectorId":        req.ConnectorID,
		"status":             res.Status,
	}
	if res.OK() {
		e.logger.Info("connector executed", fields)
	} else {
		fields["message"] = res.Message
		e.logger.Warn("connector execution failed", fields)
	}
	return res
}

func (e *DirectExecutor) index(ctx context.Context, req Request) Result {
	if e.indexer == nil {
		return errorResult(req, "index delivery is not configured")
	}
	index := configString(req.ConnectorConfig, "index")
	if index == "" {
		return errorResult(req, "connector %s has no index configured", req.ConnectorID)
	}
	docs, failed := parseDocuments(req)
	if failed != nil {
		return *failed
	}
	n, err := e.indexer.Index(ctx, index, docs)
	if err != nil {
		return errorResult(req, "indexing failed: %v", err)
	}
	return okResult(req, map[string]interface{}{"index": index, "indexed": n})
}

func (e *DirectExecutor) email(ctx context.Context, req Request) Result {
	if e.mailer == nil {
		return errorResult(req, "email delivery is not configured")
	}
	obj, failed := parseObject(req)
	if failed != nil {
		return *failed
	}
	msg, err := emailMessageFrom(obj)
	if err != nil {
		return errorResult(req, "%v", err)
	}
	id, err := e.mailer.Send(ctx, msg)
	if err != nil {
		return errorResult(req, "sending email failed: %v", err)
	}
	return okResult(req, map[string]interface{}{"messageId": id})
}

func (e *DirectExecutor) webhook(ctx context.Context, req Request) Result {
	if e.client == nil {
		return errorResult(req, "webhook delivery is not configured")
	}
	target := configString(req.ConnectorConfig, "url")
	if target == "" {
		return errorResult(req, "connector %s has no url configured", req.ConnectorID)
	}
	method := strings.ToUpper(configString(req.ConnectorConfig, "method"))
	if method == "" {
		method = http.MethodPost
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if raw, ok := req.ConnectorConfig["headers"].(map[string]interface{}); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	resp, err := e.client.DoRaw(ctx, method, target, headers, []byte(req.Payload))
	if err != nil {
		return errorResult(req, "request failed: %v", err)
	}
	if !resp.IsSuccess() {
		return errorResult(req, "webhook responded with status %d", resp.StatusCode)
	}
	return okResult(req, map[string]interface{}{"statusCode": resp.StatusCode})
}

func configString(cfg map[string]interface{}, key string) string {
	if cfg == nil {
		return ""
	}
	v, ok := cfg[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

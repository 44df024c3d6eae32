package executor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"form-connectors/internal/common/config"
	httpclient "form-connectors/internal/common/http"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/connectors"
)

// kibanaExecuteResponse is the body of POST /api/actions/connector/{id}/_execute.
type kibanaExecuteResponse struct {
	Status         string      `json:"status"`
	ConnectorID    string      `json:"connector_id"`
	Message        string      `json:"message"`
	ServiceMessage string      `json:"service_message"`
	Data           interface{} `json:"data"`
	Error          string      `json:"error"`
}

// KibanaExecutor runs connectors through the Kibana actions execute API.
type KibanaExecutor struct {
	client *httpclient.Client
	kibana config.KibanaConfig
	logger logger.Logger
}

func NewKibanaExecutor(kibana config.KibanaConfig, client *httpclient.Client, log logger.Logger) *KibanaExecutor {
	return &KibanaExecutor{
		client: client,
		kibana: kibana,
		logger: logger.Component(log, "kibana-executor"),
	}
}

func (e *KibanaExecutor) Execute(ctx context.Context, req Request) Result {
	typeID := connectors.Canonicalize(req.ConnectorTypeID)
	if !connectors.IsSupported(typeID, nil) {
		return errorResult(req, "connector type %q is not supported", req.ConnectorTypeID)
	}
	if res, ok := preflight(req); !ok {
		return res
	}

	params, failed := kibanaParams(typeID, req)
	if failed != nil {
		return *failed
	}

	endpoint := e.kibana.URL(fmt.Sprintf("/api/actions/connector/%s/_execute", url.PathEscape(req.ConnectorID)))
	resp, err := e.client.DoJSON(ctx, http.MethodPost, endpoint, e.kibana.Headers(), map[string]interface{}{"params": params})
	if err != nil {
		e.logger.Error("connector request failed", map[string]interface{}{
			"connectorBindingId": req.BindingID,
			"connectorId":        req.ConnectorID,
			"error":              err.Error(),
		})
		return errorResult(req, "request failed: %v", err)
	}

	var body kibanaExecuteResponse
	decodeErr := resp.Decode(&body)

	if !resp.IsSuccess() {
		msg := firstNonEmpty(body.Message, body.Error, http.StatusText(resp.StatusCode))
		e.logger.Warn("connector execution rejected", map[string]interface{}{
			"connectorBindingId": req.BindingID,
			"connectorId":        req.ConnectorID,
			"statusCode":         resp.StatusCode,
			"message":            msg,
		})
		return errorResult(req, "%s", msg)
	}
	if decodeErr != nil {
		return errorResult(req, "unexpected response from Kibana: %v", decodeErr)
	}
	if body.Status == string(StatusError) {
		msg := firstNonEmpty(body.ServiceMessage, body.Message, "connector execution failed")
		return errorResult(req, "%s", msg)
	}

	e.logger.Info("connector executed", map[string]interface{}{
		"connectorBindingId": req.BindingID,
		"connectorId":        req.ConnectorID,
		"connectorTypeId":    typeID,
	})
	return okResult(req, body.Data)
}

// kibanaParams shapes the payload into the params object each action type expects.
func kibanaParams(typeID string, req Request) (interface{}, *Result) {
	switch typeID {
	case connectors.TypeIndex:
		docs, failed := parseDocuments(req)
		if failed != nil {
			return nil, failed
		}
		return map[string]interface{}{"documents": docs}, nil
	case connectors.TypeWebhook:
		return map[string]interface{}{"body": req.Payload}, nil
	default:
		obj, failed := parseObject(req)
		if failed != nil {
			return nil, failed
		}
		return obj, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package catalog loads the connector types and connector instances a form
// can bind to.
package catalog

import (
	"context"
	"fmt"
	"net/http"

	"form-connectors/internal/common/config"
	"form-connectors/internal/common/errors"
	httpclient "form-connectors/internal/common/http"
	"form-connectors/internal/form"
)

// Source provides the raw, unfiltered catalogs.
type Source interface {
	LoadActionTypes(ctx context.Context) ([]form.ConnectorType, error)
	LoadAllActions(ctx context.Context) ([]form.Connector, error)
}

type kibanaConnectorType struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Enabled          bool   `json:"enabled"`
	EnabledInConfig  bool   `json:"enabled_in_config"`
	EnabledInLicense bool   `json:"enabled_in_license"`
}

type kibanaConnector struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	ConnectorTypeID string                 `json:"connector_type_id"`
	IsPreconfigured bool                   `json:"is_preconfigured"`
	Config          map[string]interface{} `json:"config"`
}

// Client reads the catalogs from the Kibana actions API.
type Client struct {
	http   *httpclient.Client
	kibana config.KibanaConfig
}

func NewClient(kibana config.KibanaConfig, client *httpclient.Client) *Client {
	return &Client{http: client, kibana: kibana}
}

func (c *Client) LoadActionTypes(ctx context.Context) ([]form.ConnectorType, error) {
	var raw []kibanaConnectorType
	if err := c.get(ctx, "/api/actions/connector_types", &raw); err != nil {
		return nil, err
	}
	out := make([]form.ConnectorType, 0, len(raw))
	for _, t := range raw {
		out = append(out, form.ConnectorType{
			ID:               t.ID,
			Name:             t.Name,
			Enabled:          t.Enabled,
			EnabledInConfig:  t.EnabledInConfig,
			EnabledInLicense: t.EnabledInLicense,
		})
	}
	return out, nil
}

func (c *Client) LoadAllActions(ctx context.Context) ([]form.Connector, error) {
	var raw []kibanaConnector
	if err := c.get(ctx, "/api/actions/connectors", &raw); err != nil {
		return nil, err
	}
	out := make([]form.Connector, 0, len(raw))
	for _, conn := range raw {
		out = append(out, form.Connector{
			ID:              conn.ID,
			Name:            conn.Name,
			ConnectorTypeID: conn.ConnectorTypeID,
			IsPreconfigured: conn.IsPreconfigured,
			Config:          conn.Config,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	resp, err := c.http.DoJSON(ctx, http.MethodGet, c.kibana.URL(path), c.kibana.Headers(), nil)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.NewExternalServiceError("kibana", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return errors.NewResourceNotFoundError("kibana", path)
	}
	if !resp.IsSuccess() {
		return errors.NewExternalServiceError("kibana", fmt.Errorf("GET %s: status %d", path, resp.StatusCode))
	}
	return resp.Decode(out)
}

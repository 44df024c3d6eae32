package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"form-connectors/internal/common/config"
	"form-connectors/internal/common/errors"
	httpclient "form-connectors/internal/common/http"
	"form-connectors/internal/form"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const connectorTypesResponse = `[
  {"id":".index","name":"Index","enabled":true,"enabled_in_config":true,"enabled_in_license":true,"minimum_license_required":"basic"},
  {"id":".slack","name":"Slack","enabled":true,"enabled_in_config":true,"enabled_in_license":true}
]`

const connectorsResponse = `[
  {"id":"idx-1","name":"Form index","connector_type_id":".index","is_preconfigured":false,"config":{"index":"forms"},"referenced_by_count":0},
  {"id":"wh-1","name":"Ops webhook","connector_type_id":".webhook","is_preconfigured":true}
]`

func newTestKibana(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("kbn-xsrf") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/api/actions/connector_types":
			_, _ = w.Write([]byte(connectorTypesResponse))
		case "/api/actions/connectors":
			_, _ = w.Write([]byte(connectorsResponse))
		case "/s/broken/api/actions/connectors", "/s/broken/api/actions/connector_types":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_LoadActionTypes(t *testing.T) {
	server := newTestKibana(t)
	client := NewClient(config.KibanaConfig{BaseURL: server.URL}, httpclient.NewClient(5*time.Second))

	types, err := client.LoadActionTypes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []form.ConnectorType{
		{ID: ".index", Name: "Index", Enabled: true, EnabledInConfig: true, EnabledInLicense: true},
		{ID: ".slack", Name: "Slack", Enabled: true, EnabledInConfig: true, EnabledInLicense: true},
	}, types)
}

func TestClient_LoadAllActions(t *testing.T) {
	server := newTestKibana(t)
	client := NewClient(config.KibanaConfig{BaseURL: server.URL}, httpclient.NewClient(5*time.Second))

	conns, err := client.LoadAllActions(context.Background())

	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, ".index", conns[0].ConnectorTypeID)
	assert.Equal(t, map[string]interface{}{"index": "forms"}, conns[0].Config)
	assert.True(t, conns[1].IsPreconfigured)
}

func TestClient_Errors(t *testing.T) {
	server := newTestKibana(t)

	client := NewClient(config.KibanaConfig{BaseURL: server.URL, Space: "broken"}, httpclient.NewClient(5*time.Second))
	_, err := client.LoadAllActions(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeExternalService))

	client = NewClient(config.KibanaConfig{BaseURL: server.URL, Space: "missing"}, httpclient.NewClient(5*time.Second))
	_, err = client.LoadActionTypes(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeResourceNotFound))
}

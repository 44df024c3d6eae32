package catalog

import (
	"testing"

	"form-connectors/internal/connectors"
	"form-connectors/internal/form"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	types := []form.ConnectorType{
		{ID: "index", Name: "Index"},
		{ID: ".slack", Name: "Slack"},
		{ID: ".webhook", Name: "Webhook"},
		{ID: ".index", Name: "Index (dup)"},
	}
	conns := []form.Connector{
		{ID: "s-1", ConnectorTypeID: ".slack"},
		{ID: "idx-1", ConnectorTypeID: "index"},
		{ID: "wh-1", ConnectorTypeID: ".webhook"},
	}

	t.Run("default allow-list", func(t *testing.T) {
		cat := Filter(types, conns, nil)

		assert.Equal(t, []form.ConnectorType{
			{ID: connectors.TypeIndex, Name: "Index"},
			{ID: connectors.TypeWebhook, Name: "Webhook"},
		}, cat.ConnectorTypes)
		assert.Equal(t, []form.Connector{
			{ID: "idx-1", ConnectorTypeID: connectors.TypeIndex},
			{ID: "wh-1", ConnectorTypeID: connectors.TypeWebhook},
		}, cat.Connectors)
	})

	t.Run("configured allow-list", func(t *testing.T) {
		cat := Filter(types, conns, []string{"webhook"})

		assert.Equal(t, []form.ConnectorType{{ID: connectors.TypeWebhook, Name: "Webhook"}}, cat.ConnectorTypes)
		assert.Equal(t, []form.Connector{{ID: "wh-1", ConnectorTypeID: connectors.TypeWebhook}}, cat.Connectors)
	})

	t.Run("empty input", func(t *testing.T) {
		cat := Filter(nil, nil, nil)
		assert.Empty(t, cat.ConnectorTypes)
		assert.NotNil(t, cat.Connectors)
	})
}

package session

import (
	"context"
	"testing"
	"time"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/connectors"
	"form-connectors/internal/form"
	"form-connectors/internal/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	types []form.ConnectorType
	conns []form.Connector
}

func (s stubSource) LoadActionTypes(ctx context.Context) ([]form.ConnectorType, error) {
	return s.types, nil
}

func (s stubSource) LoadAllActions(ctx context.Context) ([]form.Connector, error) {
	return s.conns, nil
}

func TestManager_OpenNewForm(t *testing.T) {
	m := NewManager(Dependencies{Repo: persistence.NewMemoryRepository(), Logger: logger.NewTestLogger(t)})

	s, err := m.Open(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, form.NewDefaultFormConfig().Title, got.Config().Title)
	assert.Empty(t, got.State().SavedObjectID)
}

func TestManager_OpenSavedFormThroughAlias(t *testing.T) {
	repo := persistence.NewMemoryRepository()
	cfg := form.NewDefaultFormConfig()
	cfg.Title = "Escalation"
	cfg.LayoutColumns = 3
	obj, err := repo.Create(context.Background(), form.Serialize(cfg))
	require.NoError(t, err)
	repo.AddAlias("legacy-escalation", obj.ID)

	m := NewManager(Dependencies{Repo: repo, Logger: logger.NewTestLogger(t)})
	s, err := m.Open(context.Background(), "legacy-escalation")
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, obj.ID, st.SavedObjectID)
	assert.Equal(t, "Escalation", st.Config.Title)
	assert.Equal(t, 3, st.Config.LayoutColumns)
	assert.Equal(t, form.FieldValues{"field-1": ""}, st.Values)
}

func TestManager_OpenMissingForm(t *testing.T) {
	m := NewManager(Dependencies{Repo: persistence.NewMemoryRepository(), Logger: logger.NewTestLogger(t)})

	_, err := m.Open(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFormNotFound))
	assert.Equal(t, 0, m.Len())
}

func TestManager_OpenLoadsCatalogInBackground(t *testing.T) {
	source := stubSource{
		types: []form.ConnectorType{
			{ID: "webhook", Name: "Webhook", Enabled: true},
			{ID: ".server-log", Name: "Server log", Enabled: true},
		},
		conns: []form.Connector{
			{ID: "wh-1", Name: "Ops webhook", ConnectorTypeID: ".webhook"},
			{ID: "log-1", Name: "Server log", ConnectorTypeID: ".server-log"},
		},
	}
	// background loads may outlive the test, so no test logger here
	m := NewManager(Dependencies{CatalogSource: source, Logger: logger.NewNoOpLogger()})
	defer m.CloseAll()

	s, err := m.Open(context.Background(), "")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !s.State().IsLoadingConnectors
	}, 2*time.Second, 10*time.Millisecond)

	cat := s.State().Catalog
	require.Len(t, cat.ConnectorTypes, 1)
	assert.Equal(t, connectors.TypeWebhook, cat.ConnectorTypes[0].ID)
	require.Len(t, cat.Connectors, 1)
	assert.Equal(t, "wh-1", cat.Connectors[0].ID)
}

func TestManager_Close(t *testing.T) {
	m := NewManager(Dependencies{Logger: logger.NewTestLogger(t)})
	s, err := m.Open(context.Background(), "")
	require.NoError(t, err)

	require.NoError(t, m.Close(s.ID()))
	assert.Equal(t, 0, m.Len())

	_, err = m.Get(s.ID())
	assert.True(t, errors.HasCode(err, errors.ErrCodeResourceNotFound))
	assert.True(t, errors.HasCode(m.Close(s.ID()), errors.ErrCodeResourceNotFound))
}

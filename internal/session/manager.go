package session

import (
	"context"
	"sync"

	"form-connectors/internal/catalog"
	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/common/observability"
	"form-connectors/internal/connectors/executor"
	"form-connectors/internal/form"
	"form-connectors/internal/notify"
	"form-connectors/internal/persistence"

	"github.com/google/uuid"
)

// Dependencies are shared by every session a Manager opens.
type Dependencies struct {
	Repo          persistence.Repository
	CatalogSource catalog.Source
	AllowedTypes  []string
	Executor      executor.Executor
	Concurrency   int
	Observability *observability.Observability
	Sink          notify.Sink
	Logger        logger.Logger
}

// Manager tracks open sessions. A session lives from Open until Close.
type Manager struct {
	deps   Dependencies
	logger logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(deps Dependencies) *Manager {
	return &Manager{
		deps:     deps,
		logger:   logger.Component(deps.Logger, "session-manager"),
		sessions: make(map[string]*Session),
	}
}

// Open starts a session for a new form (formID == "") or a saved one. The
// connector catalog loads in the background.
func (m *Manager) Open(ctx context.Context, formID string) (*Session, error) {
	cfg := form.NewDefaultFormConfig()
	savedID := ""

	if formID != "" {
		if m.deps.Repo == nil {
			return nil, errors.NewFormNotFoundError(formID)
		}
		res, err := m.deps.Repo.Resolve(ctx, formID)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeFormNotFound) {
				return nil, err
			}
			return nil, errors.NewFormLoadFailedError(formID, err)
		}
		if res.Outcome == persistence.OutcomeConflict {
			m.logger.Warn("form id resolves to both an object and an alias, using the exact match", map[string]interface{}{
				"formId":        formID,
				"aliasTargetId": res.AliasTargetID,
			})
		}
		cfg = form.Deserialize(res.SavedObject.Attributes)
		savedID = res.SavedObject.ID
	}

	var loader CatalogLoader
	if m.deps.CatalogSource != nil {
		loader = catalog.NewLoader(m.deps.CatalogSource, m.deps.AllowedTypes, m.deps.Logger)
	}

	s := New(Options{
		ID:            uuid.New().String(),
		SavedObjectID: savedID,
		Config:        cfg,
		Repo:          m.deps.Repo,
		Loader:        loader,
		Executor:      m.deps.Executor,
		Concurrency:   m.deps.Concurrency,
		Observability: m.deps.Observability,
		Sink:          m.deps.Sink,
		Logger:        m.deps.Logger,
	})

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Info("session opened", map[string]interface{}{
		"sessionId": s.ID(),
		"formId":    savedID,
	})

	if loader != nil {
		go func() {
			// the request that opened the session is over long before the catalog arrives
			_ = s.ReloadCatalog(context.WithoutCancel(ctx))
		}()
	}
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NewResourceNotFoundError("session", id)
	}
	return s, nil
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return errors.NewResourceNotFoundError("session", id)
	}
	s.Close()
	m.logger.Info("session closed", map[string]interface{}{"sessionId": id})
	return nil
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	open := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range open {
		s.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

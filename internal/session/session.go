// Package session holds the per-editing-session state of the form builder:
// the configuration store, entered values, the connector catalog and the
// submission lifecycle.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"form-connectors/internal/catalog"
	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/common/observability"
	"form-connectors/internal/connectors/executor"
	"form-connectors/internal/form"
	"form-connectors/internal/notify"
	"form-connectors/internal/persistence"
	"form-connectors/internal/submission"
)

// CatalogLoader is satisfied by *catalog.Loader.
type CatalogLoader interface {
	Load(ctx context.Context) (form.Catalog, error)
	OnLoaded(fn func(form.Catalog))
	Close()
}

// State is a point-in-time view of a session.
type State struct {
	ID                  string                `json:"id"`
	SavedObjectID       string                `json:"savedObjectId,omitempty"`
	Config              form.FormConfig       `json:"config"`
	Values              form.FieldValues      `json:"fieldValues"`
	Catalog             form.Catalog          `json:"catalog"`
	IsLoadingConnectors bool                  `json:"isLoadingConnectors"`
	CatalogError        string                `json:"catalogError,omitempty"`
	SubmissionState     string                `json:"submissionState"`
	Derived             form.DerivedState     `json:"derived"`
	Notifications       []notify.Notification `json:"notifications"`
}

// Session is safe for concurrent use.
type Session struct {
	id     string
	repo   persistence.Repository
	loader CatalogLoader
	logger logger.Logger

	toasts    *notify.MemorySink
	sink      notify.Sink
	submitter *submission.Submitter

	mu         sync.Mutex
	store      *form.Store
	values     form.FieldValues
	catalog    form.Catalog
	loading    bool
	catalogErr error
	savedID    string
}

type Options struct {
	ID            string
	SavedObjectID string
	Config        form.FormConfig
	Repo          persistence.Repository
	Loader        CatalogLoader
	Executor      executor.Executor
	Concurrency   int
	Observability *observability.Observability
	// Sink receives every notification in addition to the session's own queue.
	Sink   notify.Sink
	Logger logger.Logger
}

func New(opts Options) *Session {
	log := logger.Component(opts.Logger, "session").WithFields(map[string]interface{}{"sessionId": opts.ID})
	toasts := notify.NewMemorySink()
	sink := notify.Sink(toasts)
	if opts.Sink != nil {
		sink = notify.MultiSink{toasts, opts.Sink}
	}

	s := &Session{
		id:      opts.ID,
		repo:    opts.Repo,
		loader:  opts.Loader,
		logger:  log,
		toasts:  toasts,
		sink:    sink,
		store:   form.NewStore(opts.Config, opts.Logger),
		values:  initialValues(opts.Config),
		savedID: opts.SavedObjectID,
		loading: opts.Loader != nil,
	}
	if opts.Executor != nil {
		orch := submission.NewOrchestrator(opts.Executor, opts.Concurrency, sink, opts.Observability, opts.Logger)
		s.submitter = submission.NewSubmitter(orch, sink, opts.Logger)
	}
	if s.loader != nil {
		s.loader.OnLoaded(s.ApplyCatalog)
	}
	return s
}

func initialValues(cfg form.FormConfig) form.FieldValues {
	values := make(form.FieldValues, len(cfg.Fields))
	for _, f := range cfg.Fields {
		values[f.ID] = ""
	}
	return values
}

func (s *Session) ID() string { return s.id }

func (s *Session) Config() form.FormConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Config()
}

// State drains pending notifications into the returned view.
func (s *Session) State() State {
	s.mu.Lock()
	st := State{
		ID:                  s.id,
		SavedObjectID:       s.savedID,
		Config:              s.store.Config(),
		Values:              copyValues(s.values),
		Catalog:             s.catalog,
		IsLoadingConnectors: s.loading,
		Derived:             s.derivedLocked(),
	}
	if s.catalogErr != nil {
		st.CatalogError = s.catalogErr.Error()
	}
	s.mu.Unlock()

	st.SubmissionState = s.submissionState()
	st.Notifications = s.toasts.Drain()
	return st
}

func (s *Session) Derived() form.DerivedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derivedLocked()
}

func (s *Session) Preview() form.Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return form.BuildPreview(s.store.Config(), s.values, s.derivedLocked())
}

func (s *Session) derivedLocked() form.DerivedState {
	return form.ComputeDerivedState(form.DerivedInput{
		Config:              s.store.Config(),
		Values:              s.values,
		Catalog:             s.catalog,
		IsLoadingConnectors: s.loading,
		IsExecuting:         s.submitter != nil && s.submitter.IsExecuting(),
	})
}

func (s *Session) submissionState() string {
	if s.submitter == nil {
		return submission.StateIdle
	}
	return s.submitter.State()
}

// ==========================
// Store mutations
// ==========================

func (s *Session) mutate(fn func(*form.Store) form.FormConfig) form.FormConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

// UpdateConfig clamps layout columns into range; the store takes them as given.
func (s *Session) UpdateConfig(patch form.ConfigPatch) form.FormConfig {
	if patch.LayoutColumns != nil {
		cols := form.ClampLayoutColumns(*patch.LayoutColumns)
		patch.LayoutColumns = &cols
	}
	return s.mutate(func(st *form.Store) form.FormConfig { return st.UpdateConfig(patch) })
}

func (s *Session) AddField() form.FormConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.store.AddField()
	added := cfg.Fields[len(cfg.Fields)-1]
	s.values[added.ID] = ""
	return cfg
}

func (s *Session) UpdateField(id string, patch form.FieldPatch) form.FormConfig {
	return s.mutate(func(st *form.Store) form.FormConfig { return st.UpdateField(id, patch) })
}

func (s *Session) RemoveField(id string) form.FormConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, id)
	return s.store.RemoveField(id)
}

func (s *Session) ReorderField(from, to int) form.FormConfig {
	return s.mutate(func(st *form.Store) form.FormConfig { return st.ReorderField(from, to) })
}

func (s *Session) AddConnector() form.FormConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AddConnector(s.catalog, form.DefaultDocumentTemplate)
}

func (s *Session) RemoveConnector(id string) form.FormConfig {
	return s.mutate(func(st *form.Store) form.FormConfig { return st.RemoveConnector(id) })
}

func (s *Session) ChangeConnectorType(id, typeID string) form.FormConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ChangeConnectorType(id, typeID, s.catalog)
}

func (s *Session) ChangeConnector(id, connectorID string) form.FormConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ChangeConnector(id, connectorID, s.catalog)
}

func (s *Session) ChangeConnectorLabel(id, label string) form.FormConfig {
	return s.mutate(func(st *form.Store) form.FormConfig { return st.ChangeConnectorLabel(id, label) })
}

func (s *Session) ChangeConnectorTemplate(id, template string) form.FormConfig {
	return s.mutate(func(st *form.Store) form.FormConfig { return st.ChangeConnectorTemplate(id, template) })
}

// ==========================
// Field values
// ==========================

func (s *Session) SetFieldValue(fieldID, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[fieldID] = value
}

// SetFieldValues merges values keyed by field id.
func (s *Session) SetFieldValues(values form.FieldValues) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range values {
		s.values[id] = v
	}
}

// PrefillFromRow sets every field whose key names a column of row. Columns
// without a matching field are ignored; nil cells become empty strings.
func (s *Session) PrefillFromRow(row map[string]interface{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.store.Config().Fields {
		cell, ok := row[f.Key]
		if !ok {
			continue
		}
		if cell == nil {
			s.values[f.ID] = ""
		} else {
			s.values[f.ID] = fmt.Sprint(cell)
		}
		n++
	}
	return n
}

// ==========================
// Catalog
// ==========================

// ApplyCatalog installs a loaded catalog and reconciles connector selections with it.
func (s *Session) ApplyCatalog(cat form.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = cat
	s.loading = false
	s.catalogErr = nil
	if _, changed := s.store.SyncConnectorSelections(cat); changed {
		s.logger.Info("connector selections reconciled with catalog", map[string]interface{}{
			"connectorTypes": len(cat.ConnectorTypes),
			"connectors":     len(cat.Connectors),
		})
	}
}

// ReloadCatalog loads the catalog again. A load superseded by a newer one is not an error.
func (s *Session) ReloadCatalog(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	_, err := s.loader.Load(ctx)
	if err == nil || stderrors.Is(err, catalog.ErrCatalogAborted) {
		return nil
	}

	s.mu.Lock()
	s.loading = false
	s.catalogErr = err
	s.mu.Unlock()
	s.sink.Notify(ctx, notify.Danger("Failed to load connectors", errorText(err)))
	return err
}

// ==========================
// Save / submit
// ==========================

// Save writes the configuration. A failed save leaves the session untouched.
func (s *Session) Save(ctx context.Context) (persistence.SavedObject, error) {
	if s.repo == nil {
		return persistence.SavedObject{}, errors.NewInternalError(fmt.Errorf("no repository configured"))
	}

	s.mu.Lock()
	if s.derivedLocked().IsSaveDisabled {
		s.mu.Unlock()
		return persistence.SavedObject{}, errors.NewFormValidationError("resolve connector and variable problems before saving")
	}
	serialized := form.Serialize(s.store.Config())
	savedID := s.savedID
	s.mu.Unlock()

	var (
		obj persistence.SavedObject
		err error
	)
	if savedID == "" {
		obj, err = s.repo.Create(ctx, serialized)
	} else {
		obj, err = s.repo.Update(ctx, savedID, serialized)
	}
	if err != nil {
		s.sink.Notify(ctx, notify.Danger("Failed to save form", errorText(err)))
		return persistence.SavedObject{}, err
	}

	s.mu.Lock()
	s.savedID = obj.ID
	s.mu.Unlock()

	s.sink.Notify(ctx, notify.Success(fmt.Sprintf("Saved %q", obj.Title), ""))
	s.logger.Info("form saved", map[string]interface{}{"formId": obj.ID})
	return obj, nil
}

func (s *Session) snapshot() (submission.Snapshot, form.DerivedState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := submission.Snapshot{
		Config:  s.store.Config(),
		Values:  copyValues(s.values),
		Catalog: s.catalog,
	}
	return snap, s.derivedLocked()
}

// Submit returns a nil Outcome while the submission waits for Confirm.
func (s *Session) Submit(ctx context.Context) (*submission.Outcome, error) {
	if s.submitter == nil {
		return nil, errors.NewInternalError(fmt.Errorf("submission is not configured"))
	}
	snap, ds := s.snapshot()
	return s.submitter.Submit(ctx, snap, ds)
}

func (s *Session) Confirm(ctx context.Context) (*submission.Outcome, error) {
	if s.submitter == nil {
		return nil, errors.NewInternalError(fmt.Errorf("submission is not configured"))
	}
	return s.submitter.Confirm(ctx)
}

func (s *Session) Cancel(ctx context.Context) {
	if s.submitter != nil {
		s.submitter.Cancel(ctx)
	}
}

// Close aborts any in-flight catalog load.
func (s *Session) Close() {
	if s.loader != nil {
		s.loader.Close()
	}
}

func copyValues(v form.FieldValues) form.FieldValues {
	out := make(form.FieldValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

func errorText(err error) string {
	se := errors.Normalize(err)
	if se.Details != "" {
		return se.Details
	}
	return se.Message
}

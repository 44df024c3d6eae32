package catalog

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/common/metrics"
	"form-connectors/internal/form"

	"golang.org/x/sync/errgroup"
)

// ErrCatalogAborted is returned by a load that a newer load (or Close) superseded.
var ErrCatalogAborted = stderrors.New("catalog load superseded")

// Loader fetches both catalogs concurrently. Only the most recent call to Load
// may publish its result.
type Loader struct {
	source  Source
	allowed []string
	logger  logger.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	onLoaded   func(form.Catalog)
}

func NewLoader(source Source, allowed []string, log logger.Logger) *Loader {
	return &Loader{
		source:  source,
		allowed: allowed,
		logger:  logger.Component(log, "catalog"),
	}
}

// OnLoaded registers fn to run after every successful, non-superseded load.
// fn runs with the loader locked and must not call Load.
func (l *Loader) OnLoaded(fn func(form.Catalog)) {
	l.mu.Lock()
	l.onLoaded = fn
	l.mu.Unlock()
}

func (l *Loader) Load(ctx context.Context) (form.Catalog, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.generation++
	gen := l.generation
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	start := time.Now()
	l.logger.Debug("catalog load started", map[string]interface{}{"generation": gen})

	var (
		types []form.ConnectorType
		conns []form.Connector
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		types, err = l.source.LoadActionTypes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		conns, err = l.source.LoadAllActions(gctx)
		return err
	})
	err := g.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		metrics.CatalogLoads.WithLabelValues("aborted").Inc()
		l.logger.Debug("catalog load superseded", map[string]interface{}{"generation": gen})
		return form.Catalog{}, ErrCatalogAborted
	}
	l.cancel = nil

	if err != nil {
		metrics.CatalogLoads.WithLabelValues("error").Inc()
		l.logger.Error("catalog load failed", map[string]interface{}{"error": err.Error()})
		return form.Catalog{}, errors.NewCatalogLoadFailedError(err)
	}

	cat := Filter(types, conns, l.allowed)
	metrics.CatalogLoads.WithLabelValues("success").Inc()
	l.logger.Info("catalog loaded", map[string]interface{}{
		"connectorTypes": len(cat.ConnectorTypes),
		"connectors":     len(cat.Connectors),
		"durationMs":     time.Since(start).Milliseconds(),
	})
	if l.onLoaded != nil {
		l.onLoaded(cat)
	}
	return cat, nil
}

// Close aborts any in-flight load and discards its result.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.generation++
}

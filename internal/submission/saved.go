package submission

import (
	"context"
	"fmt"
	"strconv"

	"form-connectors/internal/catalog"
	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/form"
	"form-connectors/internal/persistence"
)

// SavedFormRunner submits a stored form without an editing session, for
// workflow jobs and the stateless API endpoint.
type SavedFormRunner struct {
	repo    persistence.Repository
	source  catalog.Source
	allowed []string
	orch    *Orchestrator
	logger  logger.Logger
}

func NewSavedFormRunner(repo persistence.Repository, source catalog.Source, allowed []string, orch *Orchestrator, log logger.Logger) *SavedFormRunner {
	return &SavedFormRunner{
		repo:    repo,
		source:  source,
		allowed: allowed,
		orch:    orch,
		logger:  logger.Component(log, "saved-form-runner"),
	}
}

// Run resolves formID, applies values and executes every connector binding.
// Values may be keyed by field key or field id.
func (r *SavedFormRunner) Run(ctx context.Context, formID string, values map[string]interface{}) (Outcome, error) {
	res, err := r.repo.Resolve(ctx, formID)
	if err != nil {
		return Outcome{}, err
	}
	cfg := form.Deserialize(res.SavedObject.Attributes)

	var cat form.Catalog
	if r.source != nil {
		cat, err = catalog.NewLoader(r.source, r.allowed, r.logger).Load(ctx)
		if err != nil {
			return Outcome{}, err
		}
	}

	snap := Snapshot{Config: cfg, Values: ValuesFromInput(cfg, values), Catalog: cat}
	ds := form.ComputeDerivedState(form.DerivedInput{Config: cfg, Values: snap.Values, Catalog: cat})
	if ds.IsSubmitDisabled {
		return Outcome{}, errors.NewSubmissionBlockedError(blockedReason(ds)).WithMetadata("formId", res.SavedObject.ID)
	}
	if len(cfg.Connectors) == 0 {
		return Outcome{}, errors.NewNoConnectorsError()
	}

	r.logger.Info("submitting saved form", map[string]interface{}{
		"formId":     res.SavedObject.ID,
		"connectors": len(cfg.Connectors),
	})
	out, err := r.orch.Execute(ctx, snap)
	if err != nil {
		return out, errors.NewConnectorExecutionError("", err)
	}
	return out, nil
}

// ValuesFromInput maps loosely typed input onto field ids. A key matching a
// field key wins over one matching a field id. Unknown keys are dropped and
// nil becomes the empty string.
func ValuesFromInput(cfg form.FormConfig, in map[string]interface{}) form.FieldValues {
	values := make(form.FieldValues, len(cfg.Fields))
	for _, f := range cfg.Fields {
		values[f.ID] = ""
		if v, ok := in[f.ID]; ok {
			values[f.ID] = stringify(v)
		}
		if v, ok := in[f.Key]; ok {
			values[f.ID] = stringify(v)
		}
	}
	return values
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; keep them out of exponent notation
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

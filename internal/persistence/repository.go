// Package persistence stores serialized form configurations as saved objects
// in PostgreSQL.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/common/metrics"
	"form-connectors/internal/form"

	"github.com/google/uuid"
)

// ReferenceTypeAction marks a reference to a connector instance.
const ReferenceTypeAction = "action"

type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SavedObject is one stored form.
type SavedObject struct {
	ID          string                    `json:"id"`
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Attributes  form.SerializedFormConfig `json:"attributes"`
	References  []Reference               `json:"references"`
	CreatedAt   time.Time                 `json:"createdAt"`
	UpdatedAt   time.Time                 `json:"updatedAt"`
}

// Outcome says how Resolve reached the object.
type Outcome string

const (
	OutcomeExactMatch Outcome = "exactMatch"
	OutcomeAliasMatch Outcome = "aliasMatch"
	OutcomeConflict   Outcome = "conflict"
)

type ResolveResult struct {
	SavedObject   SavedObject `json:"savedObject"`
	Outcome       Outcome     `json:"outcome"`
	AliasTargetID string      `json:"aliasTargetId,omitempty"`
}

// Repository is the saved-object store the form server depends on.
type Repository interface {
	Create(ctx context.Context, cfg form.SerializedFormConfig) (SavedObject, error)
	Update(ctx context.Context, id string, cfg form.SerializedFormConfig) (SavedObject, error)
	Resolve(ctx context.Context, id string) (ResolveResult, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]SavedObject, error)
}

// BuildReferences lists one action reference per binding that has a connector selected.
func BuildReferences(cfg form.SerializedFormConfig) []Reference {
	refs := make([]Reference, 0, len(cfg.Connectors))
	for i, c := range cfg.Connectors {
		if c.ConnectorID == "" {
			continue
		}
		refs = append(refs, Reference{
			Type: ReferenceTypeAction,
			ID:   c.ConnectorID,
			Name: fmt.Sprintf("connector_%d", i),
		})
	}
	return refs
}

type PostgresRepository struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewPostgresRepository(db *sql.DB, log logger.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger.Component(log, "persistence"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *PostgresRepository) Create(ctx context.Context, cfg form.SerializedFormConfig) (SavedObject, error) {
	obj, attrs, refs, err := r.prepare(uuid.New().String(), cfg)
	if err != nil {
		return SavedObject{}, r.saveFailed("create", err)
	}
	obj.CreatedAt = obj.UpdatedAt

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO form_saved_objects (id, title, description, attributes, "references", created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		obj.ID, obj.Title, obj.Description, attrs, refs, obj.CreatedAt,
	)
	if err != nil {
		return SavedObject{}, r.saveFailed("create", err)
	}

	metrics.FormSaves.WithLabelValues("create", "success").Inc()
	r.logger.Info("form created", map[string]interface{}{"formId": obj.ID, "connectors": len(obj.References)})
	return obj, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, cfg form.SerializedFormConfig) (SavedObject, error) {
	if !isUUID(id) {
		return SavedObject{}, errors.NewFormNotFoundError(id)
	}
	obj, attrs, refs, err := r.prepare(id, cfg)
	if err != nil {
		return SavedObject{}, r.saveFailed("update", err)
	}

	err = r.db.QueryRowContext(ctx, `
		UPDATE form_saved_objects
		SET title = $2, description = $3, attributes = $4, "references" = $5, updated_at = $6
		WHERE id = $1
		RETURNING created_at`,
		obj.ID, obj.Title, obj.Description, attrs, refs, obj.UpdatedAt,
	).Scan(&obj.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		metrics.FormSaves.WithLabelValues("update", "not_found").Inc()
		return SavedObject{}, errors.NewFormNotFoundError(id)
	}
	if err != nil {
		return SavedObject{}, r.saveFailed("update", err)
	}

	metrics.FormSaves.WithLabelValues("update", "success").Inc()
	r.logger.Info("form updated", map[string]interface{}{"formId": obj.ID})
	return obj, nil
}

// Resolve looks id up directly and through the alias table.
func (r *PostgresRepository) Resolve(ctx context.Context, id string) (ResolveResult, error) {
	exact, exactErr := SavedObject{}, sql.ErrNoRows
	if isUUID(id) {
		exact, exactErr = r.get(ctx, id)
	}
	if exactErr != nil && !stderrors.Is(exactErr, sql.ErrNoRows) {
		return ResolveResult{}, errors.NewFormLoadFailedError(id, exactErr)
	}

	var targetID string
	err := r.db.QueryRowContext(ctx,
		`SELECT target_id FROM form_saved_object_aliases WHERE source_id = $1`, id,
	).Scan(&targetID)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return ResolveResult{}, errors.NewFormLoadFailedError(id, err)
	}

	switch {
	case exactErr == nil && targetID != "":
		return ResolveResult{SavedObject: exact, Outcome: OutcomeConflict, AliasTargetID: targetID}, nil
	case exactErr == nil:
		return ResolveResult{SavedObject: exact, Outcome: OutcomeExactMatch}, nil
	case targetID != "":
		target, err := r.get(ctx, targetID)
		if stderrors.Is(err, sql.ErrNoRows) {
			return ResolveResult{}, errors.NewFormNotFoundError(id)
		}
		if err != nil {
			return ResolveResult{}, errors.NewFormLoadFailedError(id, err)
		}
		return ResolveResult{SavedObject: target, Outcome: OutcomeAliasMatch, AliasTargetID: targetID}, nil
	default:
		return ResolveResult{}, errors.NewFormNotFoundError(id)
	}
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return errors.NewFormNotFoundError(id)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM form_saved_objects WHERE id = $1`, id)
	if err != nil {
		return errors.NewExternalServiceError("postgres", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewFormNotFoundError(id)
	}
	r.logger.Info("form deleted", map[string]interface{}{"formId": id})
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]SavedObject, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, attributes, "references", created_at, updated_at
		FROM form_saved_objects
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, errors.NewExternalServiceError("postgres", err)
	}
	defer rows.Close()

	out := make([]SavedObject, 0)
	for rows.Next() {
		obj, err := scanSavedObject(rows)
		if err != nil {
			return nil, errors.NewExternalServiceError("postgres", err)
		}
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewExternalServiceError("postgres", err)
	}
	return out, nil
}

func (r *PostgresRepository) get(ctx context.Context, id string) (SavedObject, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, attributes, "references", created_at, updated_at
		FROM form_saved_objects WHERE id = $1`, id)
	return scanSavedObject(row)
}

func (r *PostgresRepository) prepare(id string, cfg form.SerializedFormConfig) (SavedObject, []byte, []byte, error) {
	obj := SavedObject{
		ID:          id,
		Title:       cfg.Title,
		Description: cfg.Description,
		Attributes:  cfg,
		References:  BuildReferences(cfg),
		UpdatedAt:   r.now(),
	}
	attrs, err := json.Marshal(cfg)
	if err != nil {
		return SavedObject{}, nil, nil, fmt.Errorf("marshal attributes: %w", err)
	}
	refs, err := json.Marshal(obj.References)
	if err != nil {
		return SavedObject{}, nil, nil, fmt.Errorf("marshal references: %w", err)
	}
	return obj, attrs, refs, nil
}

func (r *PostgresRepository) saveFailed(op string, err error) error {
	metrics.FormSaves.WithLabelValues(op, "error").Inc()
	r.logger.Error("form save failed", map[string]interface{}{"operation": op, "error": err.Error()})
	return errors.NewFormSaveFailedError(err)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSavedObject(s scanner) (SavedObject, error) {
	var (
		obj         SavedObject
		attrs, refs []byte
	)
	if err := s.Scan(&obj.ID, &obj.Title, &obj.Description, &attrs, &refs, &obj.CreatedAt, &obj.UpdatedAt); err != nil {
		return SavedObject{}, err
	}
	if err := json.Unmarshal(attrs, &obj.Attributes); err != nil {
		return SavedObject{}, fmt.Errorf("decode attributes of %s: %w", obj.ID, err)
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &obj.References); err != nil {
			return SavedObject{}, fmt.Errorf("decode references of %s: %w", obj.ID, err)
		}
	}
	return obj, nil
}

package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/form"

	"github.com/google/uuid"
)

// MemoryRepository keeps saved objects in process. Aliases can be seeded with AddAlias.
type MemoryRepository struct {
	mu      sync.RWMutex
	objects map[string]SavedObject
	aliases map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		objects: make(map[string]SavedObject),
		aliases: make(map[string]string),
	}
}

func (m *MemoryRepository) Create(ctx context.Context, cfg form.SerializedFormConfig) (SavedObject, error) {
	now := time.Now().UTC()
	obj := SavedObject{
		ID:          uuid.New().String(),
		Title:       cfg.Title,
		Description: cfg.Description,
		Attributes:  cfg,
		References:  BuildReferences(cfg),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.mu.Lock()
	m.objects[obj.ID] = obj
	m.mu.Unlock()
	return obj, nil
}

func (m *MemoryRepository) Update(ctx context.Context, id string, cfg form.SerializedFormConfig) (SavedObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[id]
	if !ok {
		return SavedObject{}, errors.NewFormNotFoundError(id)
	}
	obj.Title = cfg.Title
	obj.Description = cfg.Description
	obj.Attributes = cfg
	obj.References = BuildReferences(cfg)
	obj.UpdatedAt = time.Now().UTC()
	m.objects[id] = obj
	return obj, nil
}

func (m *MemoryRepository) Resolve(ctx context.Context, id string) (ResolveResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exact, hasExact := m.objects[id]
	targetID, hasAlias := m.aliases[id]
	target, hasTarget := m.objects[targetID]

	switch {
	case hasExact && hasAlias:
		return ResolveResult{SavedObject: exact, Outcome: OutcomeConflict, AliasTargetID: targetID}, nil
	case hasExact:
		return ResolveResult{SavedObject: exact, Outcome: OutcomeExactMatch}, nil
	case hasAlias && hasTarget:
		return ResolveResult{SavedObject: target, Outcome: OutcomeAliasMatch, AliasTargetID: targetID}, nil
	default:
		return ResolveResult{}, errors.NewFormNotFoundError(id)
	}
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[id]; !ok {
		return errors.NewFormNotFoundError(id)
	}
	delete(m.objects, id)
	for source, target := range m.aliases {
		if target == id {
			delete(m.aliases, source)
		}
	}
	return nil
}

func (m *MemoryRepository) List(ctx context.Context, limit, offset int) ([]SavedObject, error) {
	m.mu.RLock()
	out := make([]SavedObject, 0, len(m.objects))
	for _, obj := range m.objects {
		out = append(out, obj)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 || offset >= len(out) {
		return []SavedObject{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

// AddAlias makes sourceID resolve to targetID.
func (m *MemoryRepository) AddAlias(sourceID, targetID string) {
	m.mu.Lock()
	m.aliases[sourceID] = targetID
	m.mu.Unlock()
}

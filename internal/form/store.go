package form

import (
	"fmt"
	"strconv"
	"strings"

	"form-connectors/internal/common/logger"
)

const (
	fieldIDPrefix     = "field-"
	connectorIDPrefix = "connector-"
)

// ConfigPatch carries the top-level attributes to merge. Nil pointers are left unchanged.
type ConfigPatch struct {
	Title                       *string `json:"title,omitempty"`
	Description                 *string `json:"description,omitempty"`
	ShowTitle                   *bool   `json:"showTitle,omitempty"`
	ShowDescription             *bool   `json:"showDescription,omitempty"`
	LayoutColumns               *int    `json:"layoutColumns,omitempty"`
	RequireConfirmationOnSubmit *bool   `json:"requireConfirmationOnSubmit,omitempty"`
}

// FieldPatch carries field attributes to merge. Nil pointers are left unchanged.
type FieldPatch struct {
	Key         *string    `json:"key,omitempty"`
	Label       *string    `json:"label,omitempty"`
	Placeholder *string    `json:"placeholder,omitempty"`
	Type        *InputKind `json:"type,omitempty"`
	DataType    *DataType  `json:"dataType,omitempty"`
	Required    *bool      `json:"required,omitempty"`
	Size        *FieldSize `json:"size,omitempty"`
}

// Store owns one FormConfig and applies mutations to it. Each mutation
// installs and returns a new FormConfig; values handed out earlier are never
// modified. A Store is not safe for concurrent use.
type Store struct {
	config        FormConfig
	nextField     int
	nextConnector int
	logger        logger.Logger
}

func NewStore(initial FormConfig, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Store{
		config:        withSlices(initial),
		nextField:     1,
		nextConnector: 1,
		logger:        logger.Component(log, "store"),
	}
	s.advanceCounters(initial)
	return s
}

// Config returns the current configuration. Treat it as read-only.
func (s *Store) Config() FormConfig {
	return s.config
}

// advanceCounters moves the id counters past every numeric suffix in cfg so
// generated ids are never reused.
func (s *Store) advanceCounters(cfg FormConfig) {
	for _, f := range cfg.Fields {
		for _, candidate := range []string{f.ID, f.Key} {
			if n, ok := suffixNumber(candidate, fieldIDPrefix); ok && n >= s.nextField {
				s.nextField = n + 1
			}
		}
	}
	for _, b := range cfg.Connectors {
		if n, ok := suffixNumber(b.ID, connectorIDPrefix); ok && n >= s.nextConnector {
			s.nextConnector = n + 1
		}
	}
}

func suffixNumber(id, prefix string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Store) commit(next FormConfig) FormConfig {
	s.config = next
	return next
}

// UpdateConfig shallow-merges top-level attributes. LayoutColumns is stored as
// given; callers clamp it first.
func (s *Store) UpdateConfig(patch ConfigPatch) FormConfig {
	next := s.config
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.ShowTitle != nil {
		next.ShowTitle = *patch.ShowTitle
	}
	if patch.ShowDescription != nil {
		next.ShowDescription = *patch.ShowDescription
	}
	if patch.LayoutColumns != nil {
		next.LayoutColumns = *patch.LayoutColumns
	}
	if patch.RequireConfirmationOnSubmit != nil {
		next.RequireConfirmationOnSubmit = *patch.RequireConfirmationOnSubmit
	}
	return s.commit(next)
}

// ==========================
// Fields
// ==========================

// AddField appends a string field with a fresh id and key.
func (s *Store) AddField() FormConfig {
	n := s.nextField
	s.nextField++

	field := FormField{
		ID:       fmt.Sprintf("%s%d", fieldIDPrefix, n),
		Key:      fmt.Sprintf("%s%d", fieldIDPrefix, n),
		Label:    fmt.Sprintf("Field %d", n),
		Type:     InputSingleLine,
		DataType: DataTypeString,
		Size:     DefaultSize(DataTypeString),
	}

	next := s.config
	next.Fields = append(append(make([]FormField, 0, len(s.config.Fields)+1), s.config.Fields...), field)
	s.logger.Debug("field added", map[string]interface{}{"fieldId": field.ID})
	return s.commit(next)
}

// UpdateField merges patch into the field. A dataType change without an
// explicit size resets the size to the new type's default.
func (s *Store) UpdateField(id string, patch FieldPatch) FormConfig {
	field, idx := s.config.FieldByID(id)
	if idx < 0 {
		return s.config
	}
	field = field.clone()

	if patch.Key != nil {
		field.Key = *patch.Key
	}
	if patch.Label != nil {
		field.Label = *patch.Label
	}
	if patch.Placeholder != nil {
		field.Placeholder = *patch.Placeholder
	}
	if patch.Type != nil {
		field.Type = *patch.Type
	}
	if patch.Required != nil {
		field.Required = *patch.Required
	}
	if patch.DataType != nil && *patch.DataType != field.DataType {
		field.DataType = *patch.DataType
		if patch.Size == nil {
			field.Size = DefaultSize(field.DataType)
		}
	}
	if patch.Size != nil {
		size := *patch.Size
		field.Size = &size
	}
	if field.DataType == DataTypeBoolean {
		field.Size = nil
	}

	next := s.config
	next.Fields = append([]FormField(nil), s.config.Fields...)
	next.Fields[idx] = field
	return s.commit(next)
}

func (s *Store) RemoveField(id string) FormConfig {
	_, idx := s.config.FieldByID(id)
	if idx < 0 {
		return s.config
	}
	next := s.config
	next.Fields = make([]FormField, 0, len(s.config.Fields)-1)
	next.Fields = append(next.Fields, s.config.Fields[:idx]...)
	next.Fields = append(next.Fields, s.config.Fields[idx+1:]...)
	s.logger.Debug("field removed", map[string]interface{}{"fieldId": id})
	return s.commit(next)
}

// ReorderField moves the field at from to position to.
func (s *Store) ReorderField(from, to int) FormConfig {
	n := len(s.config.Fields)
	if from == to || from < 0 || to < 0 || from >= n || to >= n {
		return s.config
	}

	fields := append([]FormField(nil), s.config.Fields...)
	moved := fields[from]
	fields = append(fields[:from], fields[from+1:]...)
	fields = append(fields[:to], append([]FormField{moved}, fields[to:]...)...)

	next := s.config
	next.Fields = fields
	return s.commit(next)
}

// ==========================
// Connectors
// ==========================

// AddConnector appends a binding on the first catalog type, holding the first
// instance of that type no sibling has claimed. A blank or generic template
// is replaced by the chosen type's default.
func (s *Store) AddConnector(cat Catalog, defaultTemplate string) FormConfig {
	n := s.nextConnector
	s.nextConnector++

	binding := ConnectorBinding{
		ID:          fmt.Sprintf("%s%d", connectorIDPrefix, n),
		IsLabelAuto: true,
	}
	if len(cat.ConnectorTypes) > 0 {
		binding.ConnectorTypeID = cat.ConnectorTypes[0].ID
	}
	if avail := availableConnectors(cat, s.config.Connectors, binding, binding.ConnectorTypeID); len(avail) > 0 {
		binding.ConnectorID = avail[0].ID
	}

	position := len(s.config.Connectors)
	binding.Label = autoLabel(cat, binding.ConnectorTypeID, binding.ConnectorID, position)

	binding.DocumentTemplate = defaultTemplate
	if defaultTemplate == "" || defaultTemplate == DefaultDocumentTemplate {
		binding.DocumentTemplate = DefaultTemplateForType(binding.ConnectorTypeID)
	}

	next := s.config
	next.Connectors = append(append(make([]ConnectorBinding, 0, position+1), s.config.Connectors...), binding)
	s.logger.Debug("connector added", map[string]interface{}{
		"connectorBindingId": binding.ID,
		"connectorTypeId":    binding.ConnectorTypeID,
		"connectorId":        binding.ConnectorID,
	})
	return s.commit(next)
}

func (s *Store) RemoveConnector(id string) FormConfig {
	_, idx := s.config.ConnectorByID(id)
	if idx < 0 {
		return s.config
	}
	next := s.config
	next.Connectors = make([]ConnectorBinding, 0, len(s.config.Connectors)-1)
	next.Connectors = append(next.Connectors, s.config.Connectors[:idx]...)
	next.Connectors = append(next.Connectors, s.config.Connectors[idx+1:]...)
	s.logger.Debug("connector removed", map[string]interface{}{"connectorBindingId": id})
	return s.commit(next)
}

// ChangeConnectorType moves a binding to nextTypeID, keeping its instance only
// when it is still available under the new type.
func (s *Store) ChangeConnectorType(id, nextTypeID string, cat Catalog) FormConfig {
	binding, idx := s.config.ConnectorByID(id)
	if idx < 0 || binding.ConnectorTypeID == nextTypeID {
		return s.config
	}

	avail := availableConnectors(cat, s.config.Connectors, binding, nextTypeID)
	updated := binding
	updated.ConnectorTypeID = nextTypeID
	updated.ConnectorID = pickConnector(avail, binding.ConnectorID)
	if updated.IsLabelAuto {
		updated.Label = autoLabel(cat, updated.ConnectorTypeID, updated.ConnectorID, idx)
	}
	updated.DocumentTemplate = templateAfterTypeChange(binding.DocumentTemplate, nextTypeID)

	s.logger.Debug("connector type changed", map[string]interface{}{
		"connectorBindingId": id,
		"from":               binding.ConnectorTypeID,
		"to":                 nextTypeID,
		"connectorId":        updated.ConnectorID,
	})
	return s.replaceBinding(idx, updated)
}

// ChangeConnector selects nextConnectorID, falling back to the first available
// instance when it is claimed elsewhere or belongs to another type.
func (s *Store) ChangeConnector(id, nextConnectorID string, cat Catalog) FormConfig {
	binding, idx := s.config.ConnectorByID(id)
	if idx < 0 {
		return s.config
	}

	avail := availableConnectors(cat, s.config.Connectors, binding, binding.ConnectorTypeID)
	updated := binding
	updated.ConnectorID = pickConnector(avail, nextConnectorID)
	if updated.IsLabelAuto {
		updated.Label = autoLabel(cat, updated.ConnectorTypeID, updated.ConnectorID, idx)
	}
	if updated == binding {
		return s.config
	}
	return s.replaceBinding(idx, updated)
}

// ChangeConnectorLabel sets a manual label. The binding never auto-labels again.
func (s *Store) ChangeConnectorLabel(id, label string) FormConfig {
	binding, idx := s.config.ConnectorByID(id)
	if idx < 0 {
		return s.config
	}
	binding.Label = label
	binding.IsLabelAuto = false
	return s.replaceBinding(idx, binding)
}

func (s *Store) ChangeConnectorTemplate(id, template string) FormConfig {
	binding, idx := s.config.ConnectorByID(id)
	if idx < 0 {
		return s.config
	}
	binding.DocumentTemplate = template
	return s.replaceBinding(idx, binding)
}

// SyncConnectorSelections reconciles every binding with a freshly loaded
// catalog. It reports false, and returns the current value untouched, when
// nothing needed to change.
func (s *Store) SyncConnectorSelections(cat Catalog) (FormConfig, bool) {
	if len(s.config.Connectors) == 0 {
		return s.config, false
	}

	working := append([]ConnectorBinding(nil), s.config.Connectors...)
	changed := false

	for i, binding := range working {
		updated := binding
		if !cat.HasType(updated.ConnectorTypeID) {
			updated.ConnectorTypeID = ""
			if len(cat.ConnectorTypes) > 0 {
				updated.ConnectorTypeID = cat.ConnectorTypes[0].ID
			}
		}

		// same-slot exemption as in ChangeConnectorType: a held instance stays held
		avail := availableConnectors(cat, working, binding, updated.ConnectorTypeID)
		updated.ConnectorID = pickConnector(avail, binding.ConnectorID)

		if updated.ConnectorTypeID != binding.ConnectorTypeID {
			updated.DocumentTemplate = templateAfterTypeChange(binding.DocumentTemplate, updated.ConnectorTypeID)
		}
		if updated.IsLabelAuto {
			updated.Label = autoLabel(cat, updated.ConnectorTypeID, updated.ConnectorID, i)
		}

		if updated != binding {
			working[i] = updated
			changed = true
		}
	}

	if !changed {
		return s.config, false
	}
	s.logger.Debug("connector selections reconciled", map[string]interface{}{"connectors": len(working)})

	next := s.config
	next.Connectors = working
	return s.commit(next), true
}

// ReplaceFormConfig swaps the whole configuration, for example after a load.
func (s *Store) ReplaceFormConfig(cfg FormConfig) FormConfig {
	cfg = withSlices(cfg)
	s.advanceCounters(cfg)
	return s.commit(cfg)
}

// withSlices swaps nil field and connector slices for empty ones, matching
// what Deserialize produces.
func withSlices(cfg FormConfig) FormConfig {
	if cfg.Fields == nil {
		cfg.Fields = []FormField{}
	}
	if cfg.Connectors == nil {
		cfg.Connectors = []ConnectorBinding{}
	}
	return cfg
}

func (s *Store) replaceBinding(idx int, binding ConnectorBinding) FormConfig {
	next := s.config
	next.Connectors = append([]ConnectorBinding(nil), s.config.Connectors...)
	next.Connectors[idx] = binding
	return s.commit(next)
}

// pickConnector keeps preferred when available, else the first available, else none.
func pickConnector(avail []Connector, preferred string) string {
	if containsConnector(avail, preferred) {
		return preferred
	}
	if len(avail) > 0 {
		return avail[0].ID
	}
	return ""
}

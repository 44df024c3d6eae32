package form

import (
	"strings"

	"form-connectors/internal/connectors/payload"
)

// DerivedInput is everything derived state is computed from.
type DerivedInput struct {
	Config              FormConfig
	Values              FieldValues
	Catalog             Catalog
	IsLoadingConnectors bool
	IsExecuting         bool
}

// UnusedField is a field whose key a template never references.
type UnusedField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// TemplateValidation reports variable matching and structural checks for one binding.
type TemplateValidation struct {
	Missing  []string      `json:"missing"`
	Unused   []UnusedField `json:"unused"`
	Errors   []string      `json:"errors"`
	Warnings []string      `json:"warnings"`
}

// ConnectorSelectionState describes which instances a binding may pick.
type ConnectorSelectionState struct {
	ConnectorsForType   []Connector `json:"connectorsForType"`
	AvailableConnectors []Connector `json:"availableConnectors"`
	HasType             bool        `json:"hasType"`
	HasSelection        bool        `json:"hasSelection"`
}

type ConnectorStatus struct {
	HasWarning         bool `json:"hasWarning"`
	HasError           bool `json:"hasError"`
	HasTemplateWarning bool `json:"hasTemplateWarning"`
	HasTemplateError   bool `json:"hasTemplateError"`
}

// ConnectorSummary is the display projection of one binding.
type ConnectorSummary struct {
	ID                string          `json:"id"`
	Label             string          `json:"label"`
	ConnectorTypeID   string          `json:"connectorTypeId"`
	ConnectorTypeName string          `json:"connectorTypeName"`
	ConnectorID       string          `json:"connectorId"`
	ConnectorName     string          `json:"connectorName"`
	Status            ConnectorStatus `json:"status"`
}

// DerivedState is recomputed from DerivedInput and never persisted.
type DerivedState struct {
	FieldValidationByID           map[string]FieldValidationResult   `json:"fieldValidationById"`
	VariableNameValidationByID    map[string]VariableNameResult      `json:"variableNameValidationById"`
	HasFieldValidationWarnings    bool                               `json:"hasFieldValidationWarnings"`
	HasInvalidVariableNames       bool                               `json:"hasInvalidVariableNames"`
	RenderedPayloads              map[string]string                  `json:"renderedPayloads"`
	TemplateValidationByConnector map[string]TemplateValidation      `json:"templateValidationByConnector"`
	ConnectorSelectionState       map[string]ConnectorSelectionState `json:"connectorSelectionState"`
	ConnectorStatusByID           map[string]ConnectorStatus         `json:"connectorStatusById"`
	ConnectorSummaries            []ConnectorSummary                 `json:"connectorSummaries"`
	HasEmptyRequiredFields        bool                               `json:"hasEmptyRequiredFields"`
	IsSaveDisabled                bool                               `json:"isSaveDisabled"`
	IsSubmitDisabled              bool                               `json:"isSubmitDisabled"`
}

// ComputeDerivedState is a pure function of its input.
func ComputeDerivedState(in DerivedInput) DerivedState {
	cfg := in.Config
	values := in.Values
	if values == nil {
		values = FieldValues{}
	}

	ds := DerivedState{
		FieldValidationByID:           make(map[string]FieldValidationResult, len(cfg.Fields)),
		VariableNameValidationByID:    make(map[string]VariableNameResult, len(cfg.Fields)),
		RenderedPayloads:              make(map[string]string, len(cfg.Connectors)),
		TemplateValidationByConnector: make(map[string]TemplateValidation, len(cfg.Connectors)),
		ConnectorSelectionState:       make(map[string]ConnectorSelectionState, len(cfg.Connectors)),
		ConnectorStatusByID:           make(map[string]ConnectorStatus, len(cfg.Connectors)),
		ConnectorSummaries:            make([]ConnectorSummary, 0, len(cfg.Connectors)),
	}

	keys := make([]string, len(cfg.Fields))
	for i, f := range cfg.Fields {
		keys[i] = strings.TrimSpace(f.Key)
	}

	for _, f := range cfg.Fields {
		fv := GetFieldValidationResult(f, values[f.ID])
		ds.FieldValidationByID[f.ID] = fv
		if fv.IsOutOfRange {
			ds.HasFieldValidationWarnings = true
		}

		nv := validateFieldKey(f.Key, keys)
		ds.VariableNameValidationByID[f.ID] = nv
		if !nv.IsValid {
			ds.HasInvalidVariableNames = true
			ds.HasFieldValidationWarnings = true
		}

		if f.Required && strings.TrimSpace(values[f.ID]) == "" {
			ds.HasEmptyRequiredFields = true
		}
	}

	vars := TemplateVariables(cfg.Fields, values, nil)
	anyEmptyLabel, anyInvalidSelection, anyMissing := false, false, false

	for i, b := range cfg.Connectors {
		ds.RenderedPayloads[b.ID] = RenderTemplate(b.DocumentTemplate, vars)

		tv := validateTemplate(b, cfg.Fields)
		ds.TemplateValidationByConnector[b.ID] = tv

		sel := selectionState(in.Catalog, cfg.Connectors, b)
		ds.ConnectorSelectionState[b.ID] = sel

		emptyLabel := strings.TrimSpace(b.Label) == ""
		status := ConnectorStatus{
			HasError:           emptyLabel || !sel.HasType || !sel.HasSelection,
			HasWarning:         !in.IsLoadingConnectors && sel.HasType && len(sel.AvailableConnectors) == 0,
			HasTemplateError:   len(tv.Missing) > 0,
			HasTemplateWarning: len(tv.Unused) > 0,
		}
		ds.ConnectorStatusByID[b.ID] = status
		ds.ConnectorSummaries = append(ds.ConnectorSummaries, summarize(in.Catalog, b, i, status))

		anyEmptyLabel = anyEmptyLabel || emptyLabel
		anyInvalidSelection = anyInvalidSelection || !sel.HasSelection
		anyMissing = anyMissing || status.HasTemplateError
	}

	ds.IsSaveDisabled = anyEmptyLabel || anyInvalidSelection || anyMissing || ds.HasInvalidVariableNames
	ds.IsSubmitDisabled = ds.HasEmptyRequiredFields || ds.HasFieldValidationWarnings || in.IsExecuting
	return ds
}

// validateTemplate matches template variables against field keys. The
// reserved timestamp variable is always defined.
func validateTemplate(b ConnectorBinding, fields []FormField) TemplateValidation {
	referenced := GetTemplateVariables(b.DocumentTemplate)
	refSet := make(map[string]struct{}, len(referenced))
	for _, name := range referenced {
		refSet[name] = struct{}{}
	}

	defined := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		defined[strings.TrimSpace(f.Key)] = struct{}{}
	}

	tv := TemplateValidation{
		Missing:  []string{},
		Unused:   []UnusedField{},
		Errors:   []string{},
		Warnings: []string{},
	}
	for _, name := range referenced {
		if name == ReservedVariable {
			continue
		}
		if _, ok := defined[name]; !ok {
			tv.Missing = append(tv.Missing, name)
		}
	}
	for _, f := range fields {
		key := strings.TrimSpace(f.Key)
		if _, ok := refSet[key]; !ok {
			tv.Unused = append(tv.Unused, UnusedField{Key: key, Label: f.Label})
		}
	}

	structural := payload.Validate(b.ConnectorTypeID, b.DocumentTemplate)
	tv.Errors = append(tv.Errors, structural.Errors...)
	tv.Warnings = append(tv.Warnings, structural.Warnings...)
	return tv
}

func selectionState(cat Catalog, bindings []ConnectorBinding, b ConnectorBinding) ConnectorSelectionState {
	sel := ConnectorSelectionState{
		ConnectorsForType:   cat.ConnectorsForType(b.ConnectorTypeID),
		AvailableConnectors: availableConnectors(cat, bindings, b, b.ConnectorTypeID),
		HasType:             b.ConnectorTypeID != "",
	}
	if sel.ConnectorsForType == nil {
		sel.ConnectorsForType = []Connector{}
	}
	sel.HasSelection = sel.HasType && b.ConnectorID != "" && containsConnector(sel.AvailableConnectors, b.ConnectorID)
	return sel
}

func summarize(cat Catalog, b ConnectorBinding, position int, status ConnectorStatus) ConnectorSummary {
	s := ConnectorSummary{
		ID:              b.ID,
		Label:           b.Label,
		ConnectorTypeID: b.ConnectorTypeID,
		ConnectorID:     b.ConnectorID,
		Status:          status,
	}
	if strings.TrimSpace(s.Label) == "" {
		s.Label = FallbackConnectorLabel(position)
	}
	if t, ok := cat.TypeByID(b.ConnectorTypeID); ok {
		s.ConnectorTypeName = t.Name
	}
	if c, ok := cat.ConnectorByID(b.ConnectorID); ok {
		s.ConnectorName = c.Name
	}
	return s
}

package form

// PreviewField is one rendered input.
type PreviewField struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Placeholder string    `json:"placeholder,omitempty"`
	Type        InputKind `json:"type"`
	DataType    DataType  `json:"dataType"`
	Required    bool      `json:"required"`
	Value       string    `json:"value"`
	Invalid     bool      `json:"invalid"`
	Message     string    `json:"message,omitempty"`
}

// Preview is the presentation of a form as the person filling it in sees it.
type Preview struct {
	Title                       string             `json:"title,omitempty"`
	Description                 string             `json:"description,omitempty"`
	Columns                     int                `json:"columns"`
	Rows                        [][]PreviewField   `json:"rows"`
	Connectors                  []ConnectorSummary `json:"connectors"`
	RenderedPayloads            map[string]string  `json:"renderedPayloads"`
	RequireConfirmationOnSubmit bool               `json:"requireConfirmationOnSubmit"`
	CanSubmit                   bool               `json:"canSubmit"`
	SubmitLabel                 string             `json:"submitLabel"`
}

const (
	submitLabel        = "Submit"
	confirmSubmitLabel = "Review and submit"
)

// BuildPreview lays fields out row-major across the configured columns.
func BuildPreview(cfg FormConfig, values FieldValues, ds DerivedState) Preview {
	cols := ClampLayoutColumns(cfg.LayoutColumns)
	p := Preview{
		Columns:                     cols,
		Rows:                        make([][]PreviewField, 0, (len(cfg.Fields)+cols-1)/cols),
		Connectors:                  ds.ConnectorSummaries,
		RenderedPayloads:            ds.RenderedPayloads,
		RequireConfirmationOnSubmit: cfg.RequireConfirmationOnSubmit,
		CanSubmit:                   !ds.IsSubmitDisabled,
		SubmitLabel:                 submitLabel,
	}
	if cfg.RequireConfirmationOnSubmit {
		p.SubmitLabel = confirmSubmitLabel
	}
	if cfg.ShowTitle {
		p.Title = cfg.Title
	}
	if cfg.ShowDescription {
		p.Description = cfg.Description
	}

	var row []PreviewField
	for _, f := range cfg.Fields {
		pf := PreviewField{
			ID:          f.ID,
			Key:         f.Key,
			Label:       f.Label,
			Placeholder: f.Placeholder,
			Type:        f.Type,
			DataType:    f.DataType,
			Required:    f.Required,
			Value:       values[f.ID],
		}
		if v, ok := ds.FieldValidationByID[f.ID]; ok && v.IsOutOfRange {
			pf.Invalid = true
			pf.Message = v.Message
		}
		row = append(row, pf)
		if len(row) == cols {
			p.Rows = append(p.Rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		p.Rows = append(p.Rows, row)
	}
	return p
}

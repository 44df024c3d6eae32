package form

import "math"

// SerializedFieldSize may arrive partial or non-finite from storage.
type SerializedFieldSize struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type SerializedFormField struct {
	ID          string               `json:"id"`
	Key         string               `json:"key"`
	Label       string               `json:"label"`
	Placeholder string               `json:"placeholder,omitempty"`
	Type        InputKind            `json:"type"`
	DataType    DataType             `json:"dataType"`
	Required    bool                 `json:"required"`
	Size        *SerializedFieldSize `json:"size,omitempty"`
}

// SerializedFormConfig is the persisted and wire form of FormConfig.
type SerializedFormConfig struct {
	Title                       string                `json:"title"`
	Description                 string                `json:"description"`
	ShowTitle                   bool                  `json:"showTitle"`
	ShowDescription             bool                  `json:"showDescription"`
	LayoutColumns               float64               `json:"layoutColumns"`
	RequireConfirmationOnSubmit bool                  `json:"requireConfirmationOnSubmit"`
	Fields                      []SerializedFormField `json:"fields"`
	Connectors                  []ConnectorBinding    `json:"connectors"`
}

// Serialize clamps layout columns and field sizes and drops sizes on boolean fields.
func Serialize(cfg FormConfig) SerializedFormConfig {
	out := SerializedFormConfig{
		Title:                       cfg.Title,
		Description:                 cfg.Description,
		ShowTitle:                   cfg.ShowTitle,
		ShowDescription:             cfg.ShowDescription,
		LayoutColumns:               float64(ClampLayoutColumns(cfg.LayoutColumns)),
		RequireConfirmationOnSubmit: cfg.RequireConfirmationOnSubmit,
		Fields:                      make([]SerializedFormField, 0, len(cfg.Fields)),
		Connectors:                  append(make([]ConnectorBinding, 0, len(cfg.Connectors)), cfg.Connectors...),
	}

	for _, f := range cfg.Fields {
		sf := SerializedFormField{
			ID:          f.ID,
			Key:         f.Key,
			Label:       f.Label,
			Placeholder: f.Placeholder,
			Type:        f.Type,
			DataType:    f.DataType,
			Required:    f.Required,
		}
		if f.DataType != DataTypeBoolean {
			size := f.Size
			if size == nil {
				size = DefaultSize(f.DataType)
			}
			clamped := clampSize(*size)
			sf.Size = &SerializedFieldSize{Min: float64Ptr(clamped.Min), Max: float64Ptr(clamped.Max)}
		}
		out.Fields = append(out.Fields, sf)
	}
	return out
}

// Deserialize normalizes a stored configuration into bounds the builder accepts.
func Deserialize(s SerializedFormConfig) FormConfig {
	cfg := FormConfig{
		Title:                       s.Title,
		Description:                 s.Description,
		ShowTitle:                   s.ShowTitle,
		ShowDescription:             s.ShowDescription,
		LayoutColumns:               normalizeLayoutColumns(s.LayoutColumns),
		RequireConfirmationOnSubmit: s.RequireConfirmationOnSubmit,
		Fields:                      make([]FormField, 0, len(s.Fields)),
		Connectors:                  append(make([]ConnectorBinding, 0, len(s.Connectors)), s.Connectors...),
	}

	for _, sf := range s.Fields {
		f := FormField{
			ID:          sf.ID,
			Key:         sf.Key,
			Label:       sf.Label,
			Placeholder: sf.Placeholder,
			Type:        normalizeInputKind(sf.Type),
			DataType:    normalizeDataType(sf.DataType),
			Required:    sf.Required,
		}
		if f.DataType != DataTypeBoolean {
			size := normalizeSize(sf.Size, f.DataType)
			f.Size = &size
		}
		cfg.Fields = append(cfg.Fields, f)
	}
	return cfg
}

// normalizeLayoutColumns truncates to an integer and clamps. NaN counts as below range.
func normalizeLayoutColumns(v float64) int {
	if math.IsNaN(v) || v < MinLayoutColumns {
		return MinLayoutColumns
	}
	if v > MaxLayoutColumns {
		return MaxLayoutColumns
	}
	return int(v)
}

func normalizeSize(s *SerializedFieldSize, dataType DataType) FieldSize {
	def := *DefaultSize(dataType)
	if s == nil {
		return def
	}
	size := def
	if s.Min != nil && isFinite(*s.Min) {
		size.Min = *s.Min
	}
	if s.Max != nil && isFinite(*s.Max) {
		size.Max = *s.Max
	}
	return clampSize(size)
}

// clampSize enforces 0 <= min <= max.
func clampSize(s FieldSize) FieldSize {
	if s.Min < 0 || !isFinite(s.Min) {
		s.Min = 0
	}
	if s.Max < s.Min || !isFinite(s.Max) {
		s.Max = s.Min
	}
	return s
}

func normalizeDataType(dt DataType) DataType {
	switch dt {
	case DataTypeString, DataTypeNumber, DataTypeBoolean:
		return dt
	default:
		return DataTypeString
	}
}

func normalizeInputKind(k InputKind) InputKind {
	if k == InputMultiline {
		return InputMultiline
	}
	return InputSingleLine
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func float64Ptr(v float64) *float64 {
	return &v
}

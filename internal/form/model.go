// Package form holds the form-builder state: the editable configuration, the
// mutation store, validation primitives, the payload template engine, derived
// state and the persisted wire representation.
package form

// InputKind selects the input control rendered for a field.
type InputKind string

const (
	InputSingleLine InputKind = "text"
	InputMultiline  InputKind = "textarea"
)

// DataType is the value type a field accepts.
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
)

// ReservedVariable is injected at submission time and can never be a field key.
const ReservedVariable = "__submission_timestamp__"

const (
	MinLayoutColumns = 1
	MaxLayoutColumns = 12
)

// FieldSize bounds a string length or a numeric value.
type FieldSize struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultSize returns the size a new field of dataType starts with. Booleans have none.
func DefaultSize(dataType DataType) *FieldSize {
	switch dataType {
	case DataTypeNumber:
		return &FieldSize{Min: 0, Max: 100000}
	case DataTypeBoolean:
		return nil
	default:
		return &FieldSize{Min: 0, Max: 1024}
	}
}

type FormField struct {
	ID          string     `json:"id"`
	Key         string     `json:"key"`
	Label       string     `json:"label"`
	Placeholder string     `json:"placeholder,omitempty"`
	Type        InputKind  `json:"type"`
	DataType    DataType   `json:"dataType"`
	Required    bool       `json:"required"`
	Size        *FieldSize `json:"size,omitempty"`
}

// ConnectorBinding pairs a connector type and instance with a label and payload template.
type ConnectorBinding struct {
	ID               string `json:"id"`
	ConnectorTypeID  string `json:"connectorTypeId"`
	ConnectorID      string `json:"connectorId"`
	Label            string `json:"label"`
	IsLabelAuto      bool   `json:"isLabelAuto"`
	DocumentTemplate string `json:"documentTemplate"`
}

// FormConfig is the editable form. Values are treated as immutable: every
// store operation returns a fresh FormConfig and never writes into slices
// reachable from a previously returned value. Fields and Connectors are never
// nil once a config has passed through a Store or Deserialize.
type FormConfig struct {
	Title                       string             `json:"title"`
	Description                 string             `json:"description"`
	ShowTitle                   bool               `json:"showTitle"`
	ShowDescription             bool               `json:"showDescription"`
	LayoutColumns               int                `json:"layoutColumns"`
	RequireConfirmationOnSubmit bool               `json:"requireConfirmationOnSubmit"`
	Fields                      []FormField        `json:"fields"`
	Connectors                  []ConnectorBinding `json:"connectors"`
}

// FieldValues maps field id to the raw entered value.
type FieldValues map[string]string

// FieldByID returns the field and its index, or -1.
func (c FormConfig) FieldByID(id string) (FormField, int) {
	for i, f := range c.Fields {
		if f.ID == id {
			return f, i
		}
	}
	return FormField{}, -1
}

// ConnectorByID returns the binding and its index, or -1.
func (c FormConfig) ConnectorByID(id string) (ConnectorBinding, int) {
	for i, b := range c.Connectors {
		if b.ID == id {
			return b, i
		}
	}
	return ConnectorBinding{}, -1
}

// Clone returns a deep copy.
func (c FormConfig) Clone() FormConfig {
	out := c
	if c.Fields != nil {
		out.Fields = make([]FormField, len(c.Fields))
		for i, f := range c.Fields {
			out.Fields[i] = f.clone()
		}
	}
	if c.Connectors != nil {
		out.Connectors = append([]ConnectorBinding(nil), c.Connectors...)
	}
	return out
}

func (f FormField) clone() FormField {
	if f.Size != nil {
		s := *f.Size
		f.Size = &s
	}
	return f
}

// ClampLayoutColumns bounds n to the supported grid widths.
func ClampLayoutColumns(n int) int {
	if n < MinLayoutColumns {
		return MinLayoutColumns
	}
	if n > MaxLayoutColumns {
		return MaxLayoutColumns
	}
	return n
}

// NewDefaultFormConfig is the starting point of a new form: one required message field, no connectors.
func NewDefaultFormConfig() FormConfig {
	return FormConfig{
		Title:           "New form",
		Description:     "",
		ShowTitle:       true,
		ShowDescription: true,
		LayoutColumns:   1,
		Fields: []FormField{
			{
				ID:          "field-1",
				Key:         "message",
				Label:       "Message",
				Placeholder: "What happened?",
				Type:        InputMultiline,
				DataType:    DataTypeString,
				Required:    true,
				Size:        DefaultSize(DataTypeString),
			},
		},
		Connectors: []ConnectorBinding{},
	}
}

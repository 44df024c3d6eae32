package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "link": {
      "type": "object",
      "properties": {"path": {"type": "string"}},
      "required": ["path"],
      "additionalProperties": false
    }
  },
  "required": ["name"],
  "additionalProperties": false
}`

func TestSchema_Validate_Valid(t *testing.T) {
	s := MustCompile(testSchema)

	result := s.Validate(map[string]interface{}{"name": "x", "tags": []interface{}{"a"}})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestSchema_Validate_Errors(t *testing.T) {
	s := MustCompile(testSchema)

	tests := []struct {
		name    string
		doc     map[string]interface{}
		field   string
		code    string
		message string
	}{
		{
			name:    "unknown root key",
			doc:     map[string]interface{}{"name": "x", "extra": 1},
			field:   "extra",
			code:    CodeExtraField,
			message: `Unknown field "extra"`,
		},
		{
			name:    "unknown nested key",
			doc:     map[string]interface{}{"name": "x", "link": map[string]interface{}{"path": "/", "bad": true}},
			field:   "link.bad",
			code:    CodeExtraField,
			message: `Unknown field "link.bad"`,
		},
		{
			name:    "missing required",
			doc:     map[string]interface{}{},
			field:   "name",
			code:    CodeRequired,
			message: `Missing required field "name"`,
		},
		{
			name:  "wrong type",
			doc:   map[string]interface{}{"name": 12.0},
			field: "name",
			code:  CodeInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.Validate(tt.doc)

			require.False(t, result.Valid)
			require.True(t, result.HasErrors(tt.field), "errors: %+v", result.Errors)
			got := result.GetErrorsForField(tt.field)[0]
			assert.Equal(t, tt.code, got.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, got.Message)
			}
		})
	}
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
}

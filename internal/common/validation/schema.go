// Package validation compiles JSON schemas with gojsonschema and turns their
// results into field-addressed messages.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	CodeExtraField    = "EXTRA_FIELD"
	CodeRequired      = "REQUIRED_FIELD_MISSING"
	CodeInvalidType   = "INVALID_TYPE"
	CodeInvalidValue  = "INVALID_VALUE"
	CodeSchemaFailure = "SCHEMA_FAILURE"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile parses a JSON schema document.
func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile panics on an invalid schema. Use for package-level schemas only.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks an already decoded JSON document.
func (s *Schema) Validate(doc interface{}) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "", Message: err.Error(), Code: CodeSchemaFailure}},
		}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, convert(re))
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return &ValidationResult{Valid: false, Errors: errs}
}

func convert(re gojsonschema.ResultError) ValidationError {
	parent := re.Field()
	if parent == "(root)" {
		parent = ""
	}
	details := re.Details()

	switch re.Type() {
	case "additional_property_not_allowed":
		path := joinPath(parent, fmt.Sprint(details["property"]))
		return ValidationError{Field: path, Message: fmt.Sprintf("Unknown field %q", path), Code: CodeExtraField}
	case "required":
		path := joinPath(parent, fmt.Sprint(details["property"]))
		return ValidationError{Field: path, Message: fmt.Sprintf("Missing required field %q", path), Code: CodeRequired}
	case "invalid_type":
		return ValidationError{
			Field:   parent,
			Message: fmt.Sprintf("Field %q must be of type %v", displayPath(parent), details["expected"]),
			Code:    CodeInvalidType,
		}
	default:
		return ValidationError{
			Field:   parent,
			Message: fmt.Sprintf("Field %q: %s", displayPath(parent), re.Description()),
			Code:    CodeInvalidValue,
		}
	}
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}

// GetErrorMessages returns the messages in result order.
func (vr *ValidationResult) GetErrorMessages() []string {
	out := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		out = append(out, e.Message)
	}
	return out
}

func (vr *ValidationResult) HasErrors(field string) bool {
	return len(vr.GetErrorsForField(field)) > 0
}

// GetErrorsForField returns errors on field or anything nested beneath it.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var out []ValidationError
	for _, e := range vr.Errors {
		if e.Field == field || strings.HasPrefix(e.Field, field+".") {
			out = append(out, e)
		}
	}
	return out
}

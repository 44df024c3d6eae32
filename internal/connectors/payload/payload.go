// Package payload checks connector document templates against the parameter
// shape each connector type accepts.
package payload

import (
	"encoding/json"
	"fmt"
	"strings"

	"form-connectors/internal/common/validation"
	"form-connectors/internal/connectors"
)

// Result holds blocking errors and advisory warnings for one template.
type Result struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validator inspects a decoded template document.
type Validator func(doc interface{}) Result

var validators = map[string]Validator{
	connectors.TypeEmail: validateEmail,
	connectors.TypeJira:  validateJira,
	connectors.TypeTeams: validateTeams,
}

// HasValidator reports whether the type has a fixed parameter contract.
func HasValidator(connectorTypeID string) bool {
	_, ok := validators[connectors.Canonicalize(connectorTypeID)]
	return ok
}

// Validate parses template as JSON and validates it for the connector type.
// Types without a registered validator accept any template.
func Validate(connectorTypeID, template string) Result {
	v, ok := validators[connectors.Canonicalize(connectorTypeID)]
	if !ok {
		return Result{}
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(template), &doc); err != nil {
		return Result{Errors: []string{fmt.Sprintf("Invalid JSON: %s", err.Error())}}
	}
	return v(doc)
}

// checkSchema runs the compiled schema and returns its messages.
func checkSchema(schema *validation.Schema, doc interface{}) []string {
	result := schema.Validate(doc)
	if result.Valid {
		return nil
	}
	return result.GetErrorMessages()
}

// nonEmptyString reports a string field that exists but is blank. Missing or
// mistyped fields are left to the schema.
func nonEmptyString(obj map[string]interface{}, key, path string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Sprintf("Field %q must not be empty", path)
	}
	return ""
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func appendIf(list []string, msg string) []string {
	if msg == "" {
		return list
	}
	return append(list, msg)
}

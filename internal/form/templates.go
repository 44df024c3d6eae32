package form

import "form-connectors/internal/connectors"

// DefaultDocumentTemplate is the generic template a new binding starts with.
const DefaultDocumentTemplate = `{
  "message": "{{message}}"
}`

var typeDefaultTemplates = map[string]string{
	connectors.TypeEmail: `{
  "to": [],
  "subject": "New form submission",
  "message": "{{message}}"
}`,
	connectors.TypeJira: `{
  "subAction": "pushToService",
  "subActionParams": {
    "incident": {
      "summary": "{{message}}"
    }
  }
}`,
	connectors.TypeTeams: `{
  "message": "{{message}}"
}`,
}

// DefaultTemplateForType returns the specialized default for typeID, or the generic one.
func DefaultTemplateForType(typeID string) string {
	if tmpl, ok := typeDefaultTemplates[connectors.Canonicalize(typeID)]; ok {
		return tmpl
	}
	return DefaultDocumentTemplate
}

// templateAfterTypeChange swaps an untouched generic template for the new
// type's default. Any edit, whitespace included, keeps the template as is.
func templateAfterTypeChange(current, nextTypeID string) string {
	if current == DefaultDocumentTemplate {
		return DefaultTemplateForType(nextTypeID)
	}
	return current
}

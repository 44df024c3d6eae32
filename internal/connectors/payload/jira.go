package payload

import (
	"fmt"

	"form-connectors/internal/common/validation"
)

const jiraSubAction = "pushToService"

var jiraSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "subAction": {"type": "string"},
    "subActionParams": {
      "type": "object",
      "properties": {
        "incident": {
          "type": "object",
          "properties": {
            "summary": {"type": "string"},
            "description": {"type": ["string", "null"]},
            "issueType": {"type": ["string", "null"]},
            "priority": {"type": ["string", "null"]},
            "parent": {"type": ["string", "null"]},
            "labels": {"type": "array", "items": {"type": "string"}}
          },
          "required": ["summary"],
          "additionalProperties": false
        },
        "comments": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {"comment": {"type": "string"}},
            "required": ["comment"],
            "additionalProperties": false
          }
        }
      },
      "required": ["incident"],
      "additionalProperties": false
    }
  },
  "required": ["subAction", "subActionParams"],
  "additionalProperties": false
}`)

// Fields whose values only the Jira project can confirm.
var jiraUnverifiable = []string{"issueType", "priority", "parent"}

func validateJira(doc interface{}) Result {
	res := Result{Errors: checkSchema(jiraSchema, doc)}

	obj, ok := asObject(doc)
	if !ok {
		return res
	}
	if sub, ok := obj["subAction"].(string); ok && sub != jiraSubAction {
		res.Errors = append(res.Errors, fmt.Sprintf("Field \"subAction\" must be %q", jiraSubAction))
	}

	params, ok := asObject(obj["subActionParams"])
	if !ok {
		return res
	}
	incident, ok := asObject(params["incident"])
	if !ok {
		return res
	}
	res.Errors = appendIf(res.Errors, nonEmptyString(incident, "summary", "subActionParams.incident.summary"))

	for _, key := range jiraUnverifiable {
		if v, ok := incident[key]; ok && v != nil {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Field \"subActionParams.incident.%s\" is sent as-is; make sure %v exists in the Jira project", key, v))
		}
	}
	return res
}

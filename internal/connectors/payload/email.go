package payload

import (
	"strings"

	"form-connectors/internal/common/validation"
)

var emailSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "to": {"type": "array", "items": {"type": "string"}},
    "cc": {"type": "array", "items": {"type": "string"}},
    "bcc": {"type": "array", "items": {"type": "string"}},
    "subject": {"type": "string"},
    "message": {"type": "string"},
    "messageHTML": {"type": ["string", "null"]},
    "kibanaFooterLink": {
      "type": "object",
      "properties": {
        "path": {"type": "string"},
        "text": {"type": "string"}
      },
      "required": ["path", "text"],
      "additionalProperties": false
    },
    "attachments": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "content": {"type": "string"},
          "filename": {"type": "string"},
          "contentType": {"type": "string"},
          "encoding": {"type": "string"}
        },
        "required": ["content", "filename"],
        "additionalProperties": false
      }
    }
  },
  "required": ["subject", "message"],
  "additionalProperties": false
}`)

var recipientKeys = []string{"to", "cc", "bcc"}

func validateEmail(doc interface{}) Result {
	res := Result{Errors: checkSchema(emailSchema, doc)}

	obj, ok := asObject(doc)
	if !ok {
		return res
	}
	res.Errors = appendIf(res.Errors, nonEmptyString(obj, "subject", "subject"))
	res.Errors = appendIf(res.Errors, nonEmptyString(obj, "message", "message"))

	if !hasRecipient(obj) {
		res.Errors = append(res.Errors, `At least one recipient is required in "to", "cc" or "bcc"`)
	}
	return res
}

func hasRecipient(obj map[string]interface{}) bool {
	for _, key := range recipientKeys {
		list, ok := obj[key].([]interface{})
		if !ok {
			continue
		}
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return true
			}
		}
	}
	return false
}

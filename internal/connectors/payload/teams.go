package payload

import "form-connectors/internal/common/validation"

var teamsSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {"message": {"type": "string"}},
  "required": ["message"],
  "additionalProperties": false
}`)

func validateTeams(doc interface{}) Result {
	res := Result{Errors: checkSchema(teamsSchema, doc)}
	if obj, ok := asObject(doc); ok {
		res.Errors = appendIf(res.Errors, nonEmptyString(obj, "message", "message"))
	}
	return res
}

package formsubmit

// Input values may be keyed by field key or field id.
type Input struct {
	FormID      string                 `json:"formId"`
	FieldValues map[string]interface{} `json:"fieldValues"`
}

type ConnectorResult struct {
	ConnectorID string `json:"connectorId"`
	Label       string `json:"label"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

type Output struct {
	SubmissionID string            `json:"submissionId"`
	SubmittedAt  string            `json:"submittedAt"` // RFC 3339
	Results      []ConnectorResult `json:"results"`
	Succeeded    int               `json:"succeeded"`
	Failed       int               `json:"failed"`
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"form-connectors/internal/form"
	"form-connectors/internal/submission"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one problem in a form definition. Subject names the field key or connector label.
type Finding struct {
	Severity Severity
	Subject  string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%-7s %s: %s", f.Severity, f.Subject, f.Message)
}

func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// loadFile decodes YAML or JSON into the stored form shape and normalizes it.
func loadFile(path string) (form.FormConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return form.FormConfig{}, err
	}
	return decode(raw, filepath.Ext(path))
}

func decode(raw []byte, ext string) (form.FormConfig, error) {
	data := raw
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return form.FormConfig{}, fmt.Errorf("parse yaml: %w", err)
		}
		var err error
		if data, err = json.Marshal(doc); err != nil {
			return form.FormConfig{}, fmt.Errorf("convert yaml: %w", err)
		}
	}

	var stored form.SerializedFormConfig
	if err := json.Unmarshal(data, &stored); err != nil {
		return form.FormConfig{}, fmt.Errorf("parse form definition: %w", err)
	}
	return form.Deserialize(stored), nil
}

// Lint reports what the builder would flag, minus anything that needs a catalog.
func Lint(cfg form.FormConfig) []Finding {
	ds := form.ComputeDerivedState(form.DerivedInput{Config: cfg})
	var findings []Finding

	for _, f := range cfg.Fields {
		if v := ds.VariableNameValidationByID[f.ID]; !v.IsValid {
			findings = append(findings, Finding{SeverityError, fieldSubject(f), v.Message})
		}
	}

	for i, b := range cfg.Connectors {
		subject := b.Label
		if strings.TrimSpace(subject) == "" {
			subject = form.FallbackConnectorLabel(i)
			findings = append(findings, Finding{SeverityError, subject, "label is empty"})
		}
		tv := ds.TemplateValidationByConnector[b.ID]
		for _, name := range tv.Missing {
			findings = append(findings, Finding{SeverityError, subject, fmt.Sprintf("template references undefined variable %q", name)})
		}
		for _, msg := range tv.Errors {
			findings = append(findings, Finding{SeverityError, subject, msg})
		}
		for _, u := range tv.Unused {
			findings = append(findings, Finding{SeverityWarning, subject, fmt.Sprintf("field %q is not used by the template", u.Key)})
		}
		for _, msg := range tv.Warnings {
			findings = append(findings, Finding{SeverityWarning, subject, msg})
		}
	}
	return findings
}

func fieldSubject(f form.FormField) string {
	if strings.TrimSpace(f.Key) != "" {
		return f.Key
	}
	return f.ID
}

type RenderedPayload struct {
	Label           string
	ConnectorTypeID string
	Payload         string
}

// Render fills every connector template. values may be keyed by field key or id.
func Render(cfg form.FormConfig, values map[string]interface{}, timestamp string) []RenderedPayload {
	fieldValues := submission.ValuesFromInput(cfg, values)
	extra := map[string]string{form.ReservedVariable: timestamp}

	out := make([]RenderedPayload, 0, len(cfg.Connectors))
	for i, b := range cfg.Connectors {
		label := b.Label
		if strings.TrimSpace(label) == "" {
			label = form.FallbackConnectorLabel(i)
		}
		out = append(out, RenderedPayload{
			Label:           label,
			ConnectorTypeID: b.ConnectorTypeID,
			Payload:         form.RenderConnectorPayload(b.DocumentTemplate, cfg.Fields, fieldValues, extra),
		})
	}
	return out
}

package form

import (
	"regexp"
	"strings"
)

// placeholderPattern matches {{ name }} where name holds no braces. A marker
// that never closes, or that contains a brace, is left as literal text.
var placeholderPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// GetTemplateVariables returns the distinct variable names referenced by
// template in first-occurrence order.
func GetTemplateVariables(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]struct{}, len(matches))
	vars := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		vars = append(vars, name)
	}
	return vars
}

// RenderTemplate substitutes every placeholder in a single pass. Names without
// a mapping render as the empty string. Substituted values are not rescanned.
func RenderTemplate(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(marker string) string {
		name := strings.TrimSpace(marker[2 : len(marker)-2])
		return vars[name]
	})
}

// TemplateVariables builds the substitution map: each field's trimmed key maps
// to its current value (empty when unset), then extra overlays it.
func TemplateVariables(fields []FormField, values FieldValues, extra map[string]string) map[string]string {
	vars := make(map[string]string, len(fields)+len(extra))
	for _, f := range fields {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			continue
		}
		vars[key] = values[f.ID]
	}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

// RenderConnectorPayload renders a binding's document template against the form values.
func RenderConnectorPayload(documentTemplate string, fields []FormField, values FieldValues, extra map[string]string) string {
	return RenderTemplate(documentTemplate, TemplateVariables(fields, values, extra))
}

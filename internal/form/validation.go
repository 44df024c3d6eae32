package form

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	VariableNameMinLength = 2
	VariableNameMaxLength = 25
)

var variableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// decimalPattern is plain decimal notation with an optional exponent.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// VariableNameResult is the outcome of a field key check.
type VariableNameResult struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
}

// FieldValidationResult is the outcome of a field value range check.
type FieldValidationResult struct {
	IsOutOfRange bool   `json:"isOutOfRange"`
	Message      string `json:"message,omitempty"`
}

// ValidateVariableName checks a field key. existingNames holds every field's
// trimmed key, including the one being checked.
func ValidateVariableName(value string, existingNames []string) VariableNameResult {
	name := strings.TrimSpace(value)
	if name == "" {
		return VariableNameResult{Message: "Variable name is required."}
	}

	if n := utf8.RuneCountInString(name); n < VariableNameMinLength || n > VariableNameMaxLength {
		return VariableNameResult{Message: fmt.Sprintf(
			"Variable name must be between %d and %d characters.", VariableNameMinLength, VariableNameMaxLength)}
	}

	if !variableNamePattern.MatchString(name) {
		return VariableNameResult{Message: "Variable name must start with a letter or underscore and contain only letters, numbers, underscores or hyphens."}
	}

	count := 0
	for _, existing := range existingNames {
		if existing == name {
			count++
		}
	}
	if count > 1 {
		return VariableNameResult{Message: "Variable name must be unique."}
	}
	return VariableNameResult{IsValid: true}
}

// validateFieldKey adds the reserved-name override on top of ValidateVariableName.
func validateFieldKey(value string, existingNames []string) VariableNameResult {
	if strings.TrimSpace(value) == ReservedVariable {
		return VariableNameResult{Message: fmt.Sprintf("%q is reserved for the submission timestamp.", ReservedVariable)}
	}
	return ValidateVariableName(value, existingNames)
}

// GetFieldValidationResult range-checks a raw value against the field size.
// Empty values are never out of range; required-ness is checked elsewhere.
func GetFieldValidationResult(field FormField, rawValue string) FieldValidationResult {
	if field.Size == nil || field.DataType == DataTypeBoolean {
		return FieldValidationResult{}
	}
	size := *field.Size

	switch field.DataType {
	case DataTypeNumber:
		trimmed := strings.TrimSpace(rawValue)
		if trimmed == "" {
			return FieldValidationResult{}
		}
		// ParseFloat alone also takes NaN, Inf, hex and underscored forms
		var n float64
		var err error
		if decimalPattern.MatchString(trimmed) {
			n, err = strconv.ParseFloat(trimmed, 64)
		} else {
			err = strconv.ErrSyntax
		}
		if err != nil {
			return FieldValidationResult{
				IsOutOfRange: true,
				Message:      fmt.Sprintf("%s must be a valid number.", field.Label),
			}
		}
		if n < size.Min || n > size.Max {
			return FieldValidationResult{
				IsOutOfRange: true,
				Message:      fmt.Sprintf("%s should be between %s and %s.", field.Label, formatBound(size.Min), formatBound(size.Max)),
			}
		}
	default:
		if rawValue == "" {
			return FieldValidationResult{}
		}
		n := float64(utf8.RuneCountInString(rawValue))
		if n < size.Min || n > size.Max {
			return FieldValidationResult{
				IsOutOfRange: true,
				Message: fmt.Sprintf("%s should contain between %s and %s characters.",
					field.Label, formatBound(size.Min), formatBound(size.Max)),
			}
		}
	}
	return FieldValidationResult{}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Package connectors names the connector types a form can bind to.
package connectors

import "strings"

const (
	TypeWebhook = ".webhook"
	TypeIndex   = ".index"
	TypeEmail   = ".email"
	TypeJira    = ".jira"
	TypeTeams   = ".teams"
)

// SupportedTypes is the allow-list in menu order.
var SupportedTypes = []string{TypeWebhook, TypeIndex, TypeEmail, TypeJira, TypeTeams}

// Canonicalize maps alias ids ("index", "webhook", ...) onto their dotted form.
// Unknown ids are returned trimmed but otherwise untouched.
func Canonicalize(typeID string) string {
	id := strings.TrimSpace(typeID)
	if id == "" || strings.HasPrefix(id, ".") {
		return id
	}
	dotted := "." + id
	for _, t := range SupportedTypes {
		if t == dotted {
			return dotted
		}
	}
	return id
}

// IsSupported reports whether typeID, after canonicalization, is in allowed.
// A nil allowed list means SupportedTypes.
func IsSupported(typeID string, allowed []string) bool {
	if allowed == nil {
		allowed = SupportedTypes
	}
	id := Canonicalize(typeID)
	for _, t := range allowed {
		if Canonicalize(t) == id {
			return true
		}
	}
	return false
}

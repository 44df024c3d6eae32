package catalog

import (
	"form-connectors/internal/connectors"
	"form-connectors/internal/form"
)

// Filter keeps only allowed types and their instances, rewriting alias ids to
// the canonical dotted form. Catalog order is preserved. A nil allowed list
// means every supported type.
func Filter(types []form.ConnectorType, conns []form.Connector, allowed []string) form.Catalog {
	if allowed == nil {
		allowed = connectors.SupportedTypes
	}

	out := form.Catalog{
		ConnectorTypes: make([]form.ConnectorType, 0, len(types)),
		Connectors:     make([]form.Connector, 0, len(conns)),
	}

	seen := make(map[string]struct{}, len(types))
	for _, t := range types {
		if !connectors.IsSupported(t.ID, allowed) {
			continue
		}
		t.ID = connectors.Canonicalize(t.ID)
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out.ConnectorTypes = append(out.ConnectorTypes, t)
	}

	for _, c := range conns {
		if !connectors.IsSupported(c.ConnectorTypeID, allowed) {
			continue
		}
		c.ConnectorTypeID = connectors.Canonicalize(c.ConnectorTypeID)
		out.Connectors = append(out.Connectors, c)
	}
	return out
}

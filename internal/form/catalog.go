package form

import (
	"fmt"
	"strings"
)

// ConnectorType is one entry of the connector-type catalog.
type ConnectorType struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Enabled          bool   `json:"enabled"`
	EnabledInConfig  bool   `json:"enabledInConfig"`
	EnabledInLicense bool   `json:"enabledInLicense"`
}

// Connector is a configured connector instance.
type Connector struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	ConnectorTypeID string                 `json:"connectorTypeId"`
	IsPreconfigured bool                   `json:"isPreconfigured"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

// Catalog is the connector types and instances available to a session.
type Catalog struct {
	ConnectorTypes []ConnectorType `json:"connectorTypes"`
	Connectors     []Connector     `json:"connectors"`
}

func (c Catalog) HasType(typeID string) bool {
	_, ok := c.TypeByID(typeID)
	return ok
}

func (c Catalog) TypeByID(typeID string) (ConnectorType, bool) {
	for _, t := range c.ConnectorTypes {
		if t.ID == typeID {
			return t, true
		}
	}
	return ConnectorType{}, false
}

func (c Catalog) ConnectorByID(id string) (Connector, bool) {
	for _, conn := range c.Connectors {
		if conn.ID == id {
			return conn, true
		}
	}
	return Connector{}, false
}

// ConnectorsForType returns the instances of typeID in catalog order.
func (c Catalog) ConnectorsForType(typeID string) []Connector {
	if typeID == "" {
		return nil
	}
	out := make([]Connector, 0)
	for _, conn := range c.Connectors {
		if conn.ConnectorTypeID == typeID {
			out = append(out, conn)
		}
	}
	return out
}

// claimedBySiblings collects the connector ids held by every binding except bindingID.
func claimedBySiblings(bindings []ConnectorBinding, bindingID string) map[string]struct{} {
	claimed := make(map[string]struct{}, len(bindings))
	for _, b := range bindings {
		if b.ID == bindingID || b.ConnectorID == "" {
			continue
		}
		claimed[b.ConnectorID] = struct{}{}
	}
	return claimed
}

// availableConnectors is ConnectorsForType minus sibling claims. The binding's
// own selection is never treated as claimed.
func availableConnectors(cat Catalog, bindings []ConnectorBinding, binding ConnectorBinding, typeID string) []Connector {
	claimed := claimedBySiblings(bindings, binding.ID)
	out := make([]Connector, 0)
	for _, conn := range cat.ConnectorsForType(typeID) {
		if _, taken := claimed[conn.ID]; taken && conn.ID != binding.ConnectorID {
			continue
		}
		out = append(out, conn)
	}
	return out
}

func containsConnector(list []Connector, id string) bool {
	if id == "" {
		return false
	}
	for _, c := range list {
		if c.ID == id {
			return true
		}
	}
	return false
}

// autoLabel derives a label from the selected instance, then the type, then the slot position.
func autoLabel(cat Catalog, typeID, connectorID string, position int) string {
	if conn, ok := cat.ConnectorByID(connectorID); ok && strings.TrimSpace(conn.Name) != "" {
		return conn.Name
	}
	if t, ok := cat.TypeByID(typeID); ok && strings.TrimSpace(t.Name) != "" {
		return t.Name
	}
	return FallbackConnectorLabel(position)
}

// FallbackConnectorLabel names a binding by its zero-based position.
func FallbackConnectorLabel(position int) string {
	return fmt.Sprintf("Connector %d", position+1)
}

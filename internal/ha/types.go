package ha

import (
	"encoding/json"
)

// Message represents a base WebSocket message to/from Home Assistant
type Message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	Version string          `json:"ha_version,omitempty"`
}

// Error represents an error response from Home Assistant
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AuthMessage represents authentication request
type AuthMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
}

// Request is a command without payload, such as a registry listing.
type Request struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

// DeviceEntry is one entry of the device registry.
type DeviceEntry struct {
	ID           string     `json:"id"`
	Identifiers  [][]string `json:"identifiers"`
	Name         string     `json:"name"`
	NameByUser   string     `json:"name_by_user"`
	Manufacturer string     `json:"manufacturer"`
	Model        string     `json:"model"`
}

// HasIdentifier reports whether the device carries the (domain, id) pair.
func (d DeviceEntry) HasIdentifier(domain, id string) bool {
	for _, ident := range d.Identifiers {
		if len(ident) == 2 && ident[0] == domain && ident[1] == id {
			return true
		}
	}
	return false
}

// DisplayName returns the user-assigned name, falling back to the
// integration-assigned one.
func (d DeviceEntry) DisplayName() string {
	if d.NameByUser != "" {
		return d.NameByUser
	}
	return d.Name
}

// Package testutil provides test doubles shared across packages: a mock
// Home Assistant websocket server and builders for schedule snapshots.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Device is a device registry entry as Home Assistant serialises it.
type Device struct {
	ID           string     `json:"id"`
	Identifiers  [][]string `json:"identifiers"`
	Name         string     `json:"name"`
	NameByUser   string     `json:"name_by_user,omitempty"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Model        string     `json:"model,omitempty"`
}

type message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *messageError   `json:"error,omitempty"`
	Version string          `json:"ha_version,omitempty"`

	AccessToken string `json:"access_token,omitempty"`
}

type messageError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// connWrapper wraps a WebSocket connection with its write mutex
type connWrapper struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (w *connWrapper) write(msg message) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(msg)
}

// MockHAServer simulates the parts of the Home Assistant websocket API the
// service uses: authentication and the device registry.
type MockHAServer struct {
	server *httptest.Server
	token  string

	mu           sync.Mutex
	devices      []Device
	failRegistry bool
	requests     map[string]int
	connections  []*connWrapper
}

// NewMockHAServer starts a server accepting token.
func NewMockHAServer(token string) *MockHAServer {
	s := &MockHAServer{
		token:    token,
		requests: make(map[string]int),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	return s
}

// URL returns the websocket URL of the server.
func (s *MockHAServer) URL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/api/websocket"
}

// Close drops every connection and stops the server.
func (s *MockHAServer) Close() {
	s.DropConnections()
	s.server.Close()
}

// DropConnections closes all client connections, simulating a restart.
func (s *MockHAServer) DropConnections() {
	s.mu.Lock()
	conns := s.connections
	s.connections = nil
	s.mu.Unlock()

	for _, w := range conns {
		w.conn.Close()
	}
}

// SetDevices replaces the device registry.
func (s *MockHAServer) SetDevices(devices ...Device) {
	s.mu.Lock()
	s.devices = devices
	s.mu.Unlock()
}

// FailRegistry makes registry requests return an error result.
func (s *MockHAServer) FailRegistry(fail bool) {
	s.mu.Lock()
	s.failRegistry = fail
	s.mu.Unlock()
}

// RequestCount returns how many commands of msgType were received.
func (s *MockHAServer) RequestCount(msgType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[msgType]
}

// Connections returns the number of open client connections.
func (s *MockHAServer) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// handleWebSocket handles WebSocket connections
func (s *MockHAServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	wrapper := &connWrapper{conn: conn}
	defer s.remove(wrapper)

	if err := wrapper.write(message{Type: "auth_required", Version: "2024.6.0"}); err != nil {
		return
	}

	var auth message
	if err := conn.ReadJSON(&auth); err != nil {
		return
	}
	if auth.Type != "auth" || auth.AccessToken != s.token {
		wrapper.write(message{Type: "auth_invalid"})
		return
	}
	if err := wrapper.write(message{Type: "auth_ok", Version: "2024.6.0"}); err != nil {
		return
	}

	s.mu.Lock()
	s.connections = append(s.connections, wrapper)
	s.mu.Unlock()

	for {
		var req message
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		s.mu.Lock()
		s.requests[req.Type]++
		s.mu.Unlock()

		switch req.Type {
		case "config/device_registry/list":
			s.handleDeviceRegistry(wrapper, req.ID)
		default:
			failed := false
			wrapper.write(message{
				ID:      req.ID,
				Type:    "result",
				Success: &failed,
				Error:   &messageError{Code: "unknown_command", Message: "Unknown command."},
			})
		}
	}
}

func (s *MockHAServer) handleDeviceRegistry(wrapper *connWrapper, id int) {
	s.mu.Lock()
	fail := s.failRegistry
	devices := append([]Device{}, s.devices...)
	s.mu.Unlock()

	if fail {
		failed := false
		wrapper.write(message{
			ID:      id,
			Type:    "result",
			Success: &failed,
			Error:   &messageError{Code: "unknown_error", Message: "registry unavailable"},
		})
		return
	}

	result, _ := json.Marshal(devices)
	success := true
	wrapper.write(message{
		ID:      id,
		Type:    "result",
		Success: &success,
		Result:  result,
	})
}

func (s *MockHAServer) remove(wrapper *connWrapper) {
	s.mu.Lock()
	for i, w := range s.connections {
		if w == wrapper {
			s.connections = append(s.connections[:i], s.connections[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	wrapper.conn.Close()
}

// Package testhelpers provides shared utilities for the WebChat integration
// tests: spinning up a hub-backed test server, dialing WebSocket clients,
// and reading protocol frames with deadlines.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Datbui1711/webchat/internal/server"
)

// TestOrigin is the origin header used by test clients; the test config
// allows all origins, so any well-formed value works.
const TestOrigin = "http://localhost:8080"

// StartChatServer configures the package for testing, builds a fresh hub
// with its own routes, and returns the hub plus the WebSocket URL. Cleanup
// is registered on t.
func StartChatServer(t *testing.T) (*server.Hub, string) {
	t.Helper()

	server.SetConfig(&server.Config{
		AllowedOrigins: []string{"*"},
		RateLimit:      server.RateLimitConfig{Burst: 1000, RefillInterval: time.Second},
	})
	t.Cleanup(func() { server.SetConfig(nil) })

	hub := server.NewHub()
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(2 * time.Second) })

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleUpgrade)
	mux.HandleFunc("/health", server.HealthHandler)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return hub, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// Dial opens a WebSocket connection to the chat server with a test origin.
func Dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, err := DialOrigin(wsURL, TestOrigin)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", wsURL, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// DialOrigin opens a WebSocket connection announcing the given origin.
func DialOrigin(wsURL, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}
	conn, resp, err := dialer.Dial(wsURL, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Join announces a nickname on the connection.
func Join(t *testing.T, conn *websocket.Conn, nickname string) {
	t.Helper()
	SendFrame(t, conn, map[string]any{"type": "join", "nickname": nickname})
}

// SendChat sends a chat message frame.
func SendChat(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	SendFrame(t, conn, map[string]any{"type": "message", "message": text})
}

// SendTyping sends a typing indicator frame.
func SendTyping(t *testing.T, conn *websocket.Conn, isTyping bool) {
	t.Helper()
	SendFrame(t, conn, map[string]any{"type": "typing", "isTyping": isTyping})
}

// SendFrame writes an arbitrary JSON frame.
func SendFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("Failed to send frame %v: %v", frame, err)
	}
}

// ReadFrame reads the next frame within the timeout.
func ReadFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	return frame
}

// WaitForType reads frames until one of the wanted type arrives, failing on
// timeout. Frames of other types are discarded.
func WaitForType(t *testing.T, conn *websocket.Conn, frameType string, timeout time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		frame := ReadFrame(t, conn, time.Until(deadline))
		if frame["type"] == frameType {
			return frame
		}
	}
	t.Fatalf("No %q frame arrived within %s", frameType, timeout)
	return nil
}

// ExpectNoFrame asserts that nothing arrives on the connection within the
// given window.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err == nil {
		t.Fatalf("Expected silence, received frame %v", frame)
	}
}

// Package server exposes HTTP handlers: the WebSocket upgrade, health
// checks, and the browser chat client.
package server

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// HandleUpgrade upgrades the HTTP request to WebSocket and binds the new
// connection to this hub, which starts its read/write pumps.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	h.bindClient(NewClient(conn, h, r.RemoteAddr))
}

// WebSocketHandler serves WebSocket upgrades on the process-wide hub.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	hub.HandleUpgrade(w, r)
}

// HealthHandler provides a simple health check endpoint.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "WebChat server is running!")
}

// IndexHandler serves the browser chat client's entry page.
func IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(currentConfig().StaticDir, "index.html"))
}

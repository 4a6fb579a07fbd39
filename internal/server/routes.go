// Package server wires HTTP handlers into a ServeMux for the WebChat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the chat client, static assets, the WebSocket endpoint, health
// check, and Prometheus metrics.
func SetupRoutes() *http.ServeMux {
	staticDir := currentConfig().StaticDir

	mux := http.NewServeMux()
	mux.HandleFunc("/", IndexHandler)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("/ws", WebSocketHandler)
	mux.HandleFunc("/health", HealthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

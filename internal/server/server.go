// Package server constructs and starts the WebChat HTTP service with
// helpers that apply sensible production defaults.
package server

import (
	"context"
	"net/http"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified
// port and handler, with timeout values suitable for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartHub applies the active configuration to the global hub and starts it
// in a separate goroutine. Call before starting the HTTP server.
func StartHub() {
	hub.history.setCapacity(currentConfig().HistorySize)
	go hub.Run()
	logger.Info("Hub started and ready to manage WebSocket connections")
}

// StartServer starts the HTTP server and begins listening for connections.
func StartServer(server *http.Server) error {
	logger.Infof("Server listening on %s", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	logger.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warnf("HTTP server shutdown error: %v", err)
		return err
	}

	logger.Info("HTTP server shutdown completed")
	return nil
}

// GetHub returns the global hub instance for wiring and shutdown coordination.
func GetHub() *Hub {
	return hub
}

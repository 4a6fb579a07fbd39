// Package server implements the WebChat hub: the session registry, the
// rolling message history, broadcast fan-out, and the per-connection
// join/message/typing protocol on top of WebSocket transport.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, protocol dispatch, routing, and HTTP handlers to
// keep the codebase maintainable and testable as the project grows.
package server

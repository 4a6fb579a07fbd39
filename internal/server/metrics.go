// Package server exposes Prometheus metrics describing hub activity.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connections_active",
		Help: "Open WebSocket connections, joined or not.",
	})
	metricSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_sessions_active",
		Help: "Connections that completed a join and hold a session.",
	})
	metricMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Chat messages accepted into history and broadcast.",
	})
	metricBroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcast_failures_total",
		Help: "Recipients pruned from the registry after a failed delivery attempt.",
	})
	metricHistoryEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_history_entries",
		Help: "Entries currently held in the rolling history window.",
	})
)

// Package server coordinates session registration, message broadcast, and
// connection cleanup for the WebChat system via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Hub owns the session registry and the rolling message history and fans
// broadcasts out to every registered connection. All registry and history
// mutations go through Hub methods, reproducing the one-mutation-at-a-time
// discipline the protocol assumes on a truly parallel runtime.
type Hub struct {
	registry *sessionRegistry
	history  *historyBuffer

	// bus is nil unless cross-instance fanout is configured.
	bus *FanoutBus

	clientsMu sync.Mutex
	clients   map[*Client]struct{} // every open connection, joined or not

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a Hub with an empty registry and a history window sized
// from the active configuration.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry: newSessionRegistry(),
		history:  newHistoryBuffer(currentConfig().HistorySize),
		clients:  make(map[*Client]struct{}),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

var hub = NewHub()

// AttachBus enables cross-instance fanout through the given bus. Must be
// called before Run.
func (h *Hub) AttachBus(bus *FanoutBus) {
	h.bus = bus
}

// Run blocks until the hub is shut down. When a fanout bus is attached it
// also services frames published by other hub instances. Call in a separate
// goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	if h.bus != nil {
		go h.bus.Subscribe(h.ctx, h.deliverRemote)
	}

	<-h.ctx.Done()
	h.shutdownClients()
}

// bindClient tracks a freshly accepted connection and starts its pumps.
func (h *Hub) bindClient(c *Client) {
	h.clientsMu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.clientsMu.Unlock()

	metricConnectionsActive.Inc()
	logger.Infof("Connection opened from %s. Total connections: %d", c.addr, total)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// dropClient stops tracking a connection and closes its outbound channel so
// the write pump exits. Safe to call for already-dropped clients.
func (h *Hub) dropClient(c *Client) {
	h.clientsMu.Lock()
	_, tracked := h.clients[c]
	if tracked {
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.clientsMu.Unlock()

	if !tracked {
		return
	}
	c.closeSend()
	metricConnectionsActive.Dec()
	logger.Infof("Connection from %s closed. Total connections: %d", c.addr, total)
}

// fanout attempts delivery of one encoded frame to every registered session
// except the excluded connection. The sweep runs in two phases: first every
// recipient in the snapshot gets exactly one delivery attempt while failures
// are collected, then the failed ones are removed from the registry. Removal
// never happens mid-iteration; that would risk skipping or double-visiting
// recipients of the current broadcast.
func (h *Hub) fanout(raw []byte, exclude *Client) {
	var failed []*Session
	for _, s := range h.registry.snapshot() {
		if exclude != nil && s.client == exclude {
			continue
		}
		if !s.client.trySend(raw) {
			failed = append(failed, s)
		}
	}
	h.pruneFailed(failed)
}

// pruneFailed drops sessions whose delivery attempt failed. The pruned
// connection gets no departure notice and no roster refresh here; its own
// read loop still owns full teardown when it observes the closure. Until
// then the connection simply stops receiving broadcasts.
func (h *Hub) pruneFailed(failed []*Session) {
	for _, s := range failed {
		if h.registry.unregister(s.client.id) == nil {
			continue
		}
		metricBroadcastFailures.Inc()
		metricSessionsActive.Dec()
		logger.Warnf("Session %q (%s) pruned after failed delivery", s.nickname, s.client.addr)
	}
}

// relay hands an already-encoded frame to the cross-instance bus, if any.
func (h *Hub) relay(raw []byte) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(h.ctx, raw)
}

// deliverRemote fans a frame published by another hub instance out to all
// local sessions. Remote traffic never touches local history.
func (h *Hub) deliverRemote(raw []byte) {
	h.fanout(raw, nil)
}

// broadcastChat sends a chat message to every session, the author included;
// the echo is how the author's client confirms delivery order.
func (h *Hub) broadcastChat(entry HistoryEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		logger.Errorf("Failed to encode chat broadcast: %v", err)
		return
	}
	h.fanout(raw, nil)
	h.relay(raw)
}

// broadcastSystem announces a join/leave event, optionally excluding the
// connection the event is about.
func (h *Hub) broadcastSystem(text string, exclude *Client) {
	raw, err := json.Marshal(newSystemPayload(text))
	if err != nil {
		logger.Errorf("Failed to encode system notice: %v", err)
		return
	}
	h.fanout(raw, exclude)
	h.relay(raw)
}

// broadcastTyping relays a typing indicator to everyone except its sender.
func (h *Hub) broadcastTyping(payload TypingPayload, exclude *Client) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("Failed to encode typing notice: %v", err)
		return
	}
	h.fanout(raw, exclude)
	h.relay(raw)
}

// broadcastUserList sends the current roster, oldest joiner first, to every
// session. The roster is instance-local, so it is never relayed to the bus.
func (h *Hub) broadcastUserList() {
	sessions := h.registry.snapshot()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].joinedAt.Before(sessions[j].joinedAt)
	})

	users := make([]UserInfo, 0, len(sessions))
	for _, s := range sessions {
		users = append(users, UserInfo{
			Nickname: s.nickname,
			JoinedAt: s.joinedAt.Format(timeLayout),
		})
	}

	raw, err := json.Marshal(newUsersPayload(users))
	if err != nil {
		logger.Errorf("Failed to encode user list: %v", err)
		return
	}
	h.fanout(raw, nil)
}

// SessionCount reports how many connections currently hold a session.
func (h *Hub) SessionCount() int {
	return h.registry.count()
}

// shutdownClients closes every tracked connection so the pumps unwind.
func (h *Hub) shutdownClients() {
	h.clientsMu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.Unlock()

	logger.Infof("Shutting down %d client connections", len(clients))
	for _, c := range clients {
		if c.conn == nil {
			continue
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logger.Warnf("Error closing client connection from %s: %v", c.addr, err)
		}
	}
}

// Shutdown stops the hub, closes all client connections, and waits for the
// pump goroutines to finish or the timeout to expire.
func (h *Hub) Shutdown(timeout time.Duration) error {
	logger.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		logger.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

// Package server implements the per-connection protocol state machine.
// A connection starts unjoined, becomes joined when its join frame is
// processed, and generates departure traffic only if it ever joined.
package server

import (
	"encoding/json"
	"fmt"
	"strings"
)

// resolveNickname trims the announced nickname and falls back to a
// deterministic name derived from the peer address when blank.
func resolveNickname(raw, addr string) string {
	if nick := strings.TrimSpace(raw); nick != "" {
		return nick
	}
	return "User_" + addr
}

// dispatch classifies one inbound frame and applies the protocol action for
// its type. Malformed frames and unknown types are dropped without touching
// the connection.
func (c *Client) dispatch(raw []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		logger.Warnf("Invalid frame from %s: %v", c.addr, err)
		return
	}

	switch frame.Type {
	case frameJoin:
		c.handleJoin(frame)
	case frameMessage:
		c.handleMessage(frame)
	case frameTyping:
		c.handleTyping(frame)
	default:
		logger.Debugf("Ignoring frame with unknown type %q from %s", frame.Type, c.addr)
	}
}

// handleJoin registers a session for the connection and runs the join
// sequence: history replay and welcome go to the joiner as unicasts, the
// join notice goes to everyone else, so the joiner never sees its own
// announcement.
func (c *Client) handleJoin(frame InboundFrame) {
	if c.session != nil {
		// Rename semantics are undefined; a repeat join is a no-op.
		logger.Debugf("Ignoring repeat join from %s (%s)", c.addr, c.session.nickname)
		return
	}

	nick := resolveNickname(frame.Nickname, c.addr)
	session := newSession(c, nick)
	if !c.hub.registry.register(c.id, session) {
		logger.Errorf("Connection id %s already registered; dropping join from %s", c.id, c.addr)
		return
	}
	c.session = session
	metricSessionsActive.Inc()
	logger.Infof("User %s đã tham gia", nick)

	c.sendPayload(newHistoryPayload(c.hub.history.snapshot()))
	c.hub.broadcastUserList()
	c.hub.broadcastSystem(fmt.Sprintf("%s đã tham gia chat", nick), c)
	c.sendPayload(newWelcomePayload(fmt.Sprintf(
		"Chào mừng %s! Hiện có %d người trong chat.", nick, c.hub.registry.count())))
}

// handleMessage appends a chat message to history and broadcasts it to all
// sessions, the author included. Frames arriving before join are ignored.
func (c *Client) handleMessage(frame InboundFrame) {
	if c.session == nil {
		return
	}

	entry := newChatBroadcast(c.session.nickname, frame.Message)
	c.hub.history.append(entry)
	metricMessagesTotal.Inc()
	c.hub.broadcastChat(entry)
	logger.Infof("%s: %s", c.session.nickname, frame.Message)
}

// handleTyping relays a typing indicator to everyone except the sender.
// Typing state is transient and never stored.
func (c *Client) handleTyping(frame InboundFrame) {
	if c.session == nil {
		return
	}
	c.hub.broadcastTyping(newTypingPayload(c.session.nickname, frame.IsTyping), c)
}

// teardown runs exactly once when the read loop exits. A connection that
// never joined generates no departure traffic. A session pruned earlier by a
// failed broadcast delivery still gets its departure notice here, the moment
// its own read loop observes the closure.
func (c *Client) teardown() {
	c.hub.dropClient(c)

	session := c.hub.registry.unregister(c.id)
	if session != nil {
		metricSessionsActive.Dec()
	} else {
		session = c.session
	}
	if session == nil {
		return
	}

	c.hub.broadcastSystem(fmt.Sprintf("%s đã rời khỏi chat", session.nickname), nil)
	c.hub.broadcastUserList()
	logger.Infof("User %s đã ngắt kết nối", session.nickname)
}

// Package server defines the wire envelopes exchanged with chat clients.
// Every frame carries a "type" tag; each tag value has its own struct and
// constructor so new frame kinds are added as new cases, not loose fields.
package server

import (
	"strings"
	"time"
)

// Frame type tags shared by inbound and outbound envelopes.
const (
	frameJoin    = "join"
	frameMessage = "message"
	frameTyping  = "typing"
	frameHistory = "history"
	frameWelcome = "welcome"
	frameUsers   = "users"
	frameSystem  = "system"
)

// timeLayout is the human-readable clock used in every timestamp field.
// Collisions inside the same second are expected; timestamps are display
// values, not ordering keys.
const timeLayout = "15:04:05"

func wallClock() string {
	return time.Now().Format(timeLayout)
}

// InboundFrame is the client-to-server envelope. Type selects which of the
// remaining fields are meaningful.
type InboundFrame struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname,omitempty"`
	Message  string `json:"message,omitempty"`
	IsTyping bool   `json:"isTyping,omitempty"`
}

// HistoryEntry is one chat message. The same shape is broadcast live to all
// participants and retained in the rolling history window for replay.
type HistoryEntry struct {
	Type      string `json:"type"`
	Nickname  string `json:"nickname"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func newChatBroadcast(nickname, text string) HistoryEntry {
	return HistoryEntry{
		Type:      frameMessage,
		Nickname:  nickname,
		Message:   text,
		Timestamp: wallClock(),
	}
}

// HistoryPayload replays the retained chat window to a newly joined client.
type HistoryPayload struct {
	Type     string         `json:"type"`
	Messages []HistoryEntry `json:"messages"`
}

func newHistoryPayload(messages []HistoryEntry) HistoryPayload {
	return HistoryPayload{Type: frameHistory, Messages: messages}
}

// WelcomePayload is the private greeting sent to a client right after join.
type WelcomePayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func newWelcomePayload(text string) WelcomePayload {
	return WelcomePayload{Type: frameWelcome, Message: text, Timestamp: wallClock()}
}

// UserInfo is one entry of the participant roster.
type UserInfo struct {
	Nickname string `json:"nickname"`
	JoinedAt string `json:"joined_at"`
}

// UsersPayload carries the full participant roster and its size.
type UsersPayload struct {
	Type  string     `json:"type"`
	Users []UserInfo `json:"users"`
	Count int        `json:"count"`
}

func newUsersPayload(users []UserInfo) UsersPayload {
	return UsersPayload{Type: frameUsers, Users: users, Count: len(users)}
}

// SystemPayload announces join/leave events to the room.
type SystemPayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func newSystemPayload(text string) SystemPayload {
	return SystemPayload{Type: frameSystem, Message: text, Timestamp: wallClock()}
}

// TypingPayload relays a transient typing indicator. Never stored.
type TypingPayload struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
	IsTyping bool   `json:"isTyping"`
}

func newTypingPayload(nickname string, isTyping bool) TypingPayload {
	return TypingPayload{Type: frameTyping, Nickname: nickname, IsTyping: isTyping}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

package server

import (
	"encoding/json"
	"strings"
	"testing"
)

// newTestClient builds a client without a real socket. Frames queued for it
// are read straight from its outbound channel.
func newTestClient(hub *Hub, addr string) *Client {
	return NewClient(nil, hub, addr)
}

func joinAs(t *testing.T, c *Client, nickname string) {
	t.Helper()
	c.dispatch([]byte(`{"type":"join","nickname":"` + nickname + `"}`))
}

// nextFrame pops the next queued outbound frame, decoded generically.
func nextFrame(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case raw := <-c.send:
		var frame map[string]any
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("Undecodable outbound frame %q: %v", raw, err)
		}
		return frame
	default:
		t.Fatal("Expected a queued outbound frame, channel is empty")
		return nil
	}
}

func expectNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("Expected no outbound frame, got %s", raw)
	default:
	}
}

func drainFrames(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func TestResolveNickname(t *testing.T) {
	tests := []struct {
		raw  string
		addr string
		want string
	}{
		{"Alice", "1.2.3.4:1111", "Alice"},
		{"  Alice  ", "1.2.3.4:1111", "Alice"},
		{"", "1.2.3.4:1111", "User_1.2.3.4:1111"},
		{"   ", "1.2.3.4:1111", "User_1.2.3.4:1111"},
	}
	for _, tt := range tests {
		if got := resolveNickname(tt.raw, tt.addr); got != tt.want {
			t.Errorf("resolveNickname(%q, %q) = %q, want %q", tt.raw, tt.addr, got, tt.want)
		}
	}
}

// TestJoinSequence verifies the first joiner receives history, the roster,
// and the welcome, in that order, and never its own join notice.
func TestJoinSequence(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "1.2.3.4:1111")

	joinAs(t, a, "Alice")

	history := nextFrame(t, a)
	if history["type"] != "history" {
		t.Fatalf("Expected history first, got %v", history["type"])
	}
	if msgs, ok := history["messages"].([]any); ok && len(msgs) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(msgs))
	}

	users := nextFrame(t, a)
	if users["type"] != "users" {
		t.Fatalf("Expected users second, got %v", users["type"])
	}
	if users["count"].(float64) != 1 {
		t.Errorf("Expected count 1, got %v", users["count"])
	}

	welcome := nextFrame(t, a)
	if welcome["type"] != "welcome" {
		t.Fatalf("Expected welcome third, got %v", welcome["type"])
	}
	if msg := welcome["message"].(string); !strings.Contains(msg, "Alice") || !strings.Contains(msg, "1 người") {
		t.Errorf("Unexpected welcome message %q", msg)
	}

	expectNoFrame(t, a)

	if got := hub.SessionCount(); got != 1 {
		t.Errorf("Expected 1 registered session, got %d", got)
	}
}

// TestSecondJoinerNotices verifies the existing member sees the roster
// update and the join notice while the newcomer gets its own sequence.
func TestSecondJoinerNotices(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "1.2.3.4:1111")
	b := newTestClient(hub, "5.6.7.8:2222")

	joinAs(t, a, "Alice")
	drainFrames(a)

	joinAs(t, b, "Bob")

	if f := nextFrame(t, b); f["type"] != "history" {
		t.Errorf("Expected history for Bob, got %v", f["type"])
	}
	if f := nextFrame(t, b); f["type"] != "users" || f["count"].(float64) != 2 {
		t.Errorf("Expected users count 2 for Bob, got %v", f)
	}
	welcome := nextFrame(t, b)
	if !strings.Contains(welcome["message"].(string), "2 người") {
		t.Errorf("Expected welcome mentioning 2 people, got %q", welcome["message"])
	}
	expectNoFrame(t, b)

	if f := nextFrame(t, a); f["type"] != "users" || f["count"].(float64) != 2 {
		t.Errorf("Expected roster update for Alice, got %v", f)
	}
	system := nextFrame(t, a)
	if system["type"] != "system" || system["message"] != "Bob đã tham gia chat" {
		t.Errorf("Unexpected join notice %v", system)
	}
	expectNoFrame(t, a)
}

// TestMessageEchoAndHistory verifies a chat message reaches every session,
// the author included, and lands in history exactly once.
func TestMessageEchoAndHistory(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "1.2.3.4:1111")
	b := newTestClient(hub, "5.6.7.8:2222")
	joinAs(t, a, "Alice")
	joinAs(t, b, "Bob")
	drainFrames(a)
	drainFrames(b)

	a.dispatch([]byte(`{"type":"message","message":"hi"}`))

	for _, c := range []*Client{a, b} {
		f := nextFrame(t, c)
		if f["type"] != "message" || f["nickname"] != "Alice" || f["message"] != "hi" {
			t.Errorf("Unexpected chat broadcast %v", f)
		}
	}

	if got := hub.history.len(); got != 1 {
		t.Errorf("Expected 1 history entry, got %d", got)
	}
}

// TestTypingExcludesSenderAndIsNotCoalesced verifies typing notices skip the
// sender, are never stored, and repeated identical states produce repeated
// identical broadcasts.
func TestTypingExcludesSenderAndIsNotCoalesced(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "1.2.3.4:1111")
	b := newTestClient(hub, "5.6.7.8:2222")
	joinAs(t, a, "Alice")
	joinAs(t, b, "Bob")
	drainFrames(a)
	drainFrames(b)

	a.dispatch([]byte(`{"type":"typing","isTyping":false}`))
	a.dispatch([]byte(`{"type":"typing","isTyping":false}`))

	for i := 0; i < 2; i++ {
		f := nextFrame(t, b)
		if f["type"] != "typing" || f["nickname"] != "Alice" || f["isTyping"] != false {
			t.Errorf("Unexpected typing broadcast %d: %v", i, f)
		}
	}
	expectNoFrame(t, b)
	expectNoFrame(t, a)

	if got := hub.history.len(); got != 0 {
		t.Errorf("Typing notices must not be stored, history has %d entries", got)
	}
}

// TestFramesBeforeJoinIgnored verifies message and typing frames from an
// unjoined connection are dropped without side effects.
func TestFramesBeforeJoinIgnored(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "1.2.3.4:1111")

	a.dispatch([]byte(`{"type":"message","message":"too early"}`))
	a.dispatch([]byte(`{"type":"typing","isTyping":true}`))

	expectNoFrame(t, a)
	if got := hub.SessionCount(); got != 0 {
		t.Errorf("Unjoined connection got a session, count %d", got)
	}
	if got := hub.history.len(); got != 0 {
		t.Errorf("Pre-join message reached history, %d entries", got)
	}
}

// TestMalformedAndUnknownFramesIgnored verifies decode failures and unknown
// types neither panic nor disturb registry state.
func TestMalformedAndUnknownFramesIgnored(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "1.2.3.4:1111")
	joinAs(t, a, "Alice")
	drainFrames(a)

	a.dispatch([]byte(`{not json`))
	a.dispatch([]byte(`{"type":"emoji","message":"🎉"}`))
	a.dispatch([]byte(`{"message":"no type field"}`))

	expectNoFrame(t, a)
	if got := hub.SessionCount(); got != 1 {
		t.Errorf("Session disturbed by bad frames, count %d", got)
	}
}

// TestRepeatJoinIsNoOp verifies a second join on a joined connection neither
// renames the session nor generates traffic.
func TestRepeatJoinIsNoOp(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "1.2.3.4:1111")
	b := newTestClient(hub, "5.6.7.8:2222")
	joinAs(t, a, "Alice")
	joinAs(t, b, "Bob")
	drainFrames(a)
	drainFrames(b)

	joinAs(t, a, "Alice2")

	expectNoFrame(t, a)
	expectNoFrame(t, b)
	if a.session.Nickname() != "Alice" {
		t.Errorf("Repeat join renamed the session to %q", a.session.Nickname())
	}
	if got := hub.SessionCount(); got != 2 {
		t.Errorf("Expected 2 sessions, got %d", got)
	}
}

// TestTeardownAnnouncesDeparture verifies teardown removes the session,
// notifies the rest of the room, and refreshes the roster.
func TestTeardownAnnouncesDeparture(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "1.2.3.4:1111")
	b := newTestClient(hub, "5.6.7.8:2222")
	joinAs(t, a, "Alice")
	joinAs(t, b, "Bob")
	drainFrames(a)
	drainFrames(b)

	a.teardown()

	system := nextFrame(t, b)
	if system["type"] != "system" || system["message"] != "Alice đã rời khỏi chat" {
		t.Errorf("Unexpected departure notice %v", system)
	}
	users := nextFrame(t, b)
	if users["type"] != "users" || users["count"].(float64) != 1 {
		t.Errorf("Unexpected roster after departure %v", users)
	}
	if got := hub.SessionCount(); got != 1 {
		t.Errorf("Expected 1 session after teardown, got %d", got)
	}
}

// TestTeardownWithoutJoinIsSilent verifies a connection that never joined
// produces no departure traffic.
func TestTeardownWithoutJoinIsSilent(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "1.2.3.4:1111")
	b := newTestClient(hub, "5.6.7.8:2222")
	joinAs(t, b, "Bob")
	drainFrames(b)

	a.teardown()

	expectNoFrame(t, b)
	if got := hub.SessionCount(); got != 1 {
		t.Errorf("Expected Bob's session untouched, count %d", got)
	}
}

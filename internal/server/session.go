package server

import "time"

// Session is the registered identity of one joined, currently connected
// client. The connection stays owned by its Client; the session only borrows
// it for outbound delivery.
type Session struct {
	client   *Client
	nickname string
	joinedAt time.Time
}

func newSession(c *Client, nickname string) *Session {
	return &Session{client: c, nickname: nickname, joinedAt: time.Now()}
}

// Nickname returns the display name announced at join time. Never empty.
func (s *Session) Nickname() string {
	return s.nickname
}

// JoinedAt returns the time the join frame was processed.
func (s *Session) JoinedAt() time.Time {
	return s.joinedAt
}

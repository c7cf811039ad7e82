package hub

import "time"

// Session is the identity bound to one connection. Handlers work on copies;
// the hub owns the records.
type Session struct {
	ClientID    string
	UserID      string
	Rooms       []string
	ConnectedAt time.Time
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

func (s Session) InRoom(roomID string) bool {
	for _, r := range s.Rooms {
		if r == roomID {
			return true
		}
	}
	return false
}

func (s *Session) clone() Session {
	out := *s
	out.Rooms = append([]string(nil), s.Rooms...)
	return out
}

// session returns a snapshot of the client's session.
func (h *Hub) session(clientID string) (Session, bool) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	s, ok := h.sessions[clientID]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

func (h *Hub) bindUser(clientID, userID string) (Session, bool) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	s, ok := h.sessions[clientID]
	if !ok {
		return Session{}, false
	}
	s.UserID = userID
	return s.clone(), true
}

// subscribe records roomID on the session and adds the client to the room.
func (h *Hub) subscribe(c *Client, roomID string) bool {
	h.clientsMu.Lock()
	s, ok := h.sessions[c.ID]
	if ok && !s.InRoom(roomID) {
		s.Rooms = append(s.Rooms, roomID)
	}
	h.clientsMu.Unlock()

	if !ok {
		return false
	}
	h.joinRoom(roomID, c)
	if c.IsClosed() {
		// lost a race with removeClient
		h.leaveRoom(roomID, c.ID)
		return false
	}
	return true
}

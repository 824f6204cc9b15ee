package relay

import (
	"time"
)

// chatRoom is the in-memory routing record for one chat session. Only
// customer connections are members; admins receive session traffic through
// the shared admin room. lastActivity stays zero while customers are
// connected and is stamped when the last one leaves.
type chatRoom struct {
	sessionId    string
	customers    map[*Client]struct{}
	createdAt    time.Time
	lastActivity time.Time
}

// roomTable maps chat sessions to rooms and holds the single shared admin
// room. Owned by the RelayServer's run loop; no locking required.
type roomTable struct {
	rooms  map[string]*chatRoom
	admins map[*Client]struct{}
}

func newRoomTable() *roomTable {
	return &roomTable{
		rooms:  make(map[string]*chatRoom),
		admins: make(map[*Client]struct{}),
	}
}

// joinSessionRoom adds c to the room for sessionId, creating the room record
// if absent. Reports whether a new room was created.
func (rt *roomTable) joinSessionRoom(c *Client, sessionId string, now time.Time) bool {
	room, ok := rt.rooms[sessionId]
	if !ok {
		room = &chatRoom{
			sessionId: sessionId,
			customers: make(map[*Client]struct{}),
			createdAt: now,
		}
		rt.rooms[sessionId] = room
	}

	room.customers[c] = struct{}{}
	room.lastActivity = time.Time{}
	return !ok
}

func (rt *roomTable) joinAdminRoom(c *Client) {
	rt.admins[c] = struct{}{}
}

// leaveAll removes c from the admin room and from its session room, if any.
// Removing the last customer from a session room stamps lastActivity but
// keeps the record so the admin dashboard can still reference it until the
// reaper sweeps it.
func (rt *roomTable) leaveAll(c *Client, now time.Time) {
	delete(rt.admins, c)

	if c.sessionId == "" {
		return
	}

	room, ok := rt.rooms[c.sessionId]
	if !ok {
		return
	}

	delete(room.customers, c)
	if len(room.customers) == 0 {
		room.lastActivity = now
	}
}

func (rt *roomTable) room(sessionId string) (*chatRoom, bool) {
	room, ok := rt.rooms[sessionId]
	return room, ok
}

// removeRoom drops the routing record for sessionId. Reports whether it
// existed.
func (rt *roomTable) removeRoom(sessionId string) bool {
	if _, ok := rt.rooms[sessionId]; !ok {
		return false
	}
	delete(rt.rooms, sessionId)
	return true
}

func (rt *roomTable) count() int {
	return len(rt.rooms)
}

// emitToRoom delivers ev to every customer in the session room except skip.
func (rt *roomTable) emitToRoom(sessionId string, ev *ServerEvent, skip *Client) {
	room, ok := rt.rooms[sessionId]
	if !ok {
		return
	}

	for c := range room.customers {
		if c == skip {
			continue
		}
		c.queueEvent(ev)
	}
}

// emitToAdmins delivers ev to every admin-room member except skip.
func (rt *roomTable) emitToAdmins(ev *ServerEvent, skip *Client) {
	for c := range rt.admins {
		if c == skip {
			continue
		}
		c.queueEvent(ev)
	}
}

// sweep removes rooms with no customers whose lastActivity is older than
// staleAfter and returns the session ids removed. Rooms that never emptied
// (zero lastActivity) are retained.
func (rt *roomTable) sweep(now time.Time, staleAfter time.Duration) []string {
	var removed []string
	for sessionId, room := range rt.rooms {
		if len(room.customers) == 0 &&
			!room.lastActivity.IsZero() &&
			now.Sub(room.lastActivity) > staleAfter {
			delete(rt.rooms, sessionId)
			removed = append(removed, sessionId)
		}
	}
	return removed
}

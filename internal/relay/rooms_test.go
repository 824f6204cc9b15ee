package relay

import (
	"testing"
	"time"

	"github.com/haulix/relay/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, admin bool) *Client {
	t.Helper()
	return &Client{
		id:    "test-" + t.Name() + "-" + time.Now().Format("150405.000000000"),
		log:   testutil.TestLogger(t),
		admin: admin,
		send:  make(chan *ServerEvent, 256),
		stop:  make(chan struct{}),
	}
}

func TestJoinSessionRoom(t *testing.T) {
	rt := newRoomTable()
	now := time.Now()

	c1 := newTestClient(t, false)
	created := rt.joinSessionRoom(c1, "s1", now)
	assert.True(t, created, "expected first join to create the room")

	room, ok := rt.room("s1")
	assert.True(t, ok, "expected room to exist")
	assert.Contains(t, room.customers, c1, "expected customer to be a member")
	assert.Equal(t, now, room.createdAt, "expected creation timestamp to be set")
	assert.True(t, room.lastActivity.IsZero(), "expected lastActivity to be unset while occupied")

	c2 := newTestClient(t, false)
	created = rt.joinSessionRoom(c2, "s1", now.Add(time.Second))
	assert.False(t, created, "expected second join to reuse the room")
	assert.Len(t, room.customers, 2, "expected both customers in the room")
}

func TestLeaveAllStampsLastActivity(t *testing.T) {
	rt := newRoomTable()
	now := time.Now()

	c1 := newTestClient(t, false)
	c1.sessionId = "s1"
	c2 := newTestClient(t, false)
	c2.sessionId = "s1"
	rt.joinSessionRoom(c1, "s1", now)
	rt.joinSessionRoom(c2, "s1", now)

	leaveTime := now.Add(time.Minute)
	rt.leaveAll(c1, leaveTime)

	room, ok := rt.room("s1")
	assert.True(t, ok, "expected room to survive a partial leave")
	assert.True(t, room.lastActivity.IsZero(), "expected lastActivity unset while a customer remains")

	rt.leaveAll(c2, leaveTime)
	room, ok = rt.room("s1")
	assert.True(t, ok, "expected empty room to be retained for the grace period")
	assert.Equal(t, leaveTime, room.lastActivity, "expected lastActivity stamped when last customer leaves")
}

func TestLeaveAllRemovesAdmin(t *testing.T) {
	rt := newRoomTable()

	a := newTestClient(t, true)
	rt.joinAdminRoom(a)
	assert.Contains(t, rt.admins, a, "expected admin to be in admin room")

	rt.leaveAll(a, time.Now())
	assert.NotContains(t, rt.admins, a, "expected admin to be removed from admin room")
}

func TestEmitToRoomIsolation(t *testing.T) {
	rt := newRoomTable()
	now := time.Now()

	c1 := newTestClient(t, false)
	c2 := newTestClient(t, false)
	other := newTestClient(t, false)
	rt.joinSessionRoom(c1, "s1", now)
	rt.joinSessionRoom(c2, "s1", now)
	rt.joinSessionRoom(other, "s2", now)

	ev := &ServerEvent{Event: EventAdminResponse}
	rt.emitToRoom("s1", ev, c1)

	select {
	case got := <-c2.send:
		assert.Equal(t, ev, got, "expected room member to receive the event")
	default:
		t.Error("expected room member to receive the event")
	}

	assert.Empty(t, c1.send, "expected sender to be skipped")
	assert.Empty(t, other.send, "expected member of another room to receive nothing")
}

func TestEmitToAdmins(t *testing.T) {
	rt := newRoomTable()

	a1 := newTestClient(t, true)
	a2 := newTestClient(t, true)
	rt.joinAdminRoom(a1)
	rt.joinAdminRoom(a2)

	ev := &ServerEvent{Event: EventNewCustomerMessage}
	rt.emitToAdmins(ev, nil)

	assert.Len(t, a1.send, 1, "expected exactly one delivery to first admin")
	assert.Len(t, a2.send, 1, "expected exactly one delivery to second admin")
}

func TestSweep(t *testing.T) {
	base := time.Now()
	staleAfter := 30 * time.Minute

	t.Run("removes stale empty room", func(t *testing.T) {
		rt := newRoomTable()
		c := newTestClient(t, false)
		c.sessionId = "stale"
		rt.joinSessionRoom(c, "stale", base)
		rt.leaveAll(c, base)

		removed := rt.sweep(base.Add(31*time.Minute), staleAfter)
		assert.Equal(t, []string{"stale"}, removed, "expected stale room to be swept")
		_, ok := rt.room("stale")
		assert.False(t, ok, "expected stale room to be gone")
	})

	t.Run("retains room within threshold", func(t *testing.T) {
		rt := newRoomTable()
		c := newTestClient(t, false)
		c.sessionId = "fresh"
		rt.joinSessionRoom(c, "fresh", base)
		rt.leaveAll(c, base)

		removed := rt.sweep(base.Add(29*time.Minute), staleAfter)
		assert.Empty(t, removed, "expected no rooms swept inside the threshold")
		_, ok := rt.room("fresh")
		assert.True(t, ok, "expected fresh room to be retained")
	})

	t.Run("retains occupied room past threshold", func(t *testing.T) {
		rt := newRoomTable()
		c := newTestClient(t, false)
		c.sessionId = "occupied"
		rt.joinSessionRoom(c, "occupied", base)

		removed := rt.sweep(base.Add(24*time.Hour), staleAfter)
		assert.Empty(t, removed, "expected occupied room to be retained")
	})

	t.Run("retains empty room that never stamped activity", func(t *testing.T) {
		rt := newRoomTable()
		rt.rooms["unstamped"] = &chatRoom{
			sessionId: "unstamped",
			customers: make(map[*Client]struct{}),
			createdAt: base,
		}

		removed := rt.sweep(base.Add(24*time.Hour), staleAfter)
		assert.Empty(t, removed, "expected room without lastActivity to be retained")
	})
}

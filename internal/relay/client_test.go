package relay

import (
	"testing"
	"time"

	"github.com/haulix/relay/internal/stats"
	"github.com/haulix/relay/internal/store"
	"github.com/haulix/relay/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_queueEvent(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerEvent, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueEvent(&ServerEvent{Event: EventPong})
		assert.True(t, res, "expected queueEvent to return true when channel is not full")

		select {
		case ev := <-c.send:
			assert.NotNil(t, ev, "expected an event to be queued for the client")
		default:
			t.Error("expected an event to be queued for the client, but none was")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerEvent, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &ServerEvent{} // Pre-fill the send channel to simulate a full channel
		res := c.queueEvent(&ServerEvent{Event: EventPong})
		assert.False(t, res, "expected queueEvent to return false when channel is full")
	})
}

func Test_serializeEvent(t *testing.T) {
	ts := Now()
	ev := &ServerEvent{
		Event: EventMessageSent,
		Data: MessageSent{
			SessionId: "s1",
			MessageId: "msg_abc123",
			Timestamp: ts,
		},
	}

	expected := `{"event":"message_sent","data":{"sessionId":"s1","messageId":"msg_abc123","timestamp":"` +
		ts.Format(time.RFC3339Nano) + `"}}`

	bytes, err := serializeEvent(ev)
	assert.NoError(t, err, "expected no error during serialization")
	assert.Equal(t, expected, string(bytes), "expected serialized event to match the wire format")
}

func Test_stopClient(t *testing.T) {
	c := &Client{
		stop: make(chan struct{}),
	}

	c.stopClient()

	select {
	case <-c.stop:
		// Channel is closed as expected
	default:
		t.Error("expected stop channel to be closed")
	}

	assert.NotPanics(t, c.stopClient, "expected repeated stop to be safe")
}

func TestNewClient(t *testing.T) {
	rs := newTestRelayServer(t, &store.MockRepository{}, &stats.MockStatsUpdater{})

	c := NewClient(nil, rs, testutil.TestLogger(t), true)
	assert.NotEmpty(t, c.Id(), "expected a generated connection id")
	assert.True(t, c.admin, "expected admin capability to be set")
	assert.NotNil(t, c.send, "expected send channel to be initialized")
	assert.NotNil(t, c.stop, "expected stop channel to be initialized")

	other := NewClient(nil, rs, testutil.TestLogger(t), false)
	assert.NotEqual(t, c.Id(), other.Id(), "expected distinct connection ids")
	assert.False(t, other.admin, "expected no admin capability by default")
}

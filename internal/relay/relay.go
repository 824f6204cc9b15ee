package relay

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/haulix/relay/internal/stats"
	"github.com/haulix/relay/internal/store"
	"github.com/haulix/relay/internal/types"
)

const closedChatNotice = "This chat has been closed by the admin. Thank you for using Haulix!"

type stopReq struct {
	done chan struct{}
}

// RelayServer owns all in-memory relay state: the connection registry, the
// room table and the admin room. All mutation happens on the single Run
// goroutine; client pumps only exchange messages over channels, so none of
// the shared structures need locks.
type RelayServer struct {
	log            *log.Logger
	store          store.Repository
	stats          stats.StatsProvider
	registry       *registry
	rooms          *roomTable
	clients        map[*Client]struct{}
	events         chan *ClientEvent
	RegisterChan   chan *Client
	DeregisterChan chan *Client
	reapInterval   time.Duration
	staleAfter     time.Duration
	stop           chan stopReq
}

func NewRelayServer(logger *log.Logger, st store.Repository, su stats.StatsProvider, reapInterval, staleAfter time.Duration) (*RelayServer, error) {
	rs := &RelayServer{
		log:            logger,
		store:          st,
		stats:          su,
		registry:       newRegistry(),
		rooms:          newRoomTable(),
		clients:        make(map[*Client]struct{}),
		events:         make(chan *ClientEvent, 256),
		RegisterChan:   make(chan *Client),
		DeregisterChan: make(chan *Client),
		reapInterval:   reapInterval,
		staleAfter:     staleAfter,
		stop:           make(chan stopReq),
	}

	su.RegisterMetric(stats.ActiveCustomers)
	su.RegisterMetric(stats.ActiveAdmins)
	su.RegisterMetric(stats.ActiveRooms)
	su.RegisterMetric(stats.MessagesRelayed)

	return rs, nil
}

func (rs *RelayServer) Run() {
	ticker := time.NewTicker(rs.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case c := <-rs.RegisterChan:
			rs.addClient(c)
		case c := <-rs.DeregisterChan:
			rs.removeClient(c)
		case ev := <-rs.events:
			rs.dispatch(ev)
		case <-ticker.C:
			rs.reapStaleRooms(time.Now())
		case req := <-rs.stop:
			rs.log.Println("closing client connections")
			for c := range rs.clients {
				c.stopClient()
			}
			close(req.done)
			return
		}
	}
}

func (rs *RelayServer) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case rs.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rs *RelayServer) addClient(c *Client) {
	rs.clients[c] = struct{}{}
}

// removeClient handles disconnect cleanup. Idempotent: a second call for the
// same connection is a no-op.
func (rs *RelayServer) removeClient(c *Client) {
	if _, ok := rs.clients[c]; !ok {
		return
	}
	delete(rs.clients, c)

	now := Now()
	rs.rooms.leaveAll(c, now)

	info, registered := rs.registry.lookup(c.id)
	rs.registry.unregister(c.id)
	if !registered {
		return
	}

	switch info.role {
	case RoleAdmin:
		rs.stats.Decr(stats.ActiveAdmins)
	case RoleCustomer:
		rs.stats.Decr(stats.ActiveCustomers)
		rs.rooms.emitToAdmins(&ServerEvent{
			Event: EventCustomerActivity,
			Data: CustomerActivity{
				SessionId: info.sessionId,
				Type:      "disconnected",
				Timestamp: now,
				SocketId:  c.id,
			},
		}, nil)
	}
}

func (rs *RelayServer) dispatch(ev *ClientEvent) {
	switch ev.Event {
	case EventJoinChat:
		rs.handleJoinChat(ev)
	case EventAdminJoin:
		rs.handleAdminJoin(ev)
	case EventCustomerMessage:
		rs.handleCustomerMessage(ev)
	case EventAdminMessage:
		rs.handleAdminMessage(ev)
	case EventCustomerTyping:
		rs.handleCustomerTyping(ev)
	case EventAdminTyping:
		rs.handleAdminTyping(ev)
	case EventOrderCreated:
		rs.handleOrderCreated(ev)
	case EventOrderStatusUpdate:
		rs.handleOrderStatusUpdate(ev)
	case EventCloseChat:
		rs.handleCloseChat(ev)
	case EventGetChatHistory:
		rs.handleChatHistory(ev)
	case EventPing:
		ev.client.queueEvent(PongEvent())
	default:
		rs.log.Printf("ignoring unknown event %q from %s", ev.Event, ev.client.id)
	}
}

func (rs *RelayServer) handleJoinChat(ev *ClientEvent) {
	join, err := parseJoinChat(ev.Data)
	if err != nil || join.SessionId == "" {
		ev.client.queueEvent(ErrorEvent("Session ID is required"))
		return
	}

	c := ev.client
	now := Now()

	if info, ok := rs.registry.lookup(c.id); !ok || info.role != RoleCustomer {
		rs.stats.Incr(stats.ActiveCustomers)
	}

	c.sessionId = join.SessionId
	rs.registry.register(c.id, RoleCustomer, join.SessionId, c)
	if created := rs.rooms.joinSessionRoom(c, join.SessionId, now); created {
		rs.stats.Incr(stats.ActiveRooms)
	}

	rs.rooms.emitToAdmins(&ServerEvent{
		Event: EventCustomerActivity,
		Data: CustomerActivity{
			SessionId: join.SessionId,
			Type:      "joined",
			Timestamp: now,
			SocketId:  c.id,
		},
	}, nil)
}

func (rs *RelayServer) handleAdminJoin(ev *ClientEvent) {
	c := ev.client
	if !c.admin {
		c.queueEvent(ErrorEvent("admin authorization required"))
		return
	}

	if info, ok := rs.registry.lookup(c.id); !ok || info.role != RoleAdmin {
		rs.stats.Incr(stats.ActiveAdmins)
	}

	rs.registry.register(c.id, RoleAdmin, "", c)
	rs.rooms.joinAdminRoom(c)

	c.queueEvent(&ServerEvent{
		Event: EventAdminStats,
		Data: AdminStats{
			TotalCustomers:  rs.registry.countByRole(RoleCustomer),
			ActiveChatRooms: rs.rooms.count(),
			Timestamp:       Now(),
		},
	})
}

func (rs *RelayServer) handleCustomerMessage(ev *ClientEvent) {
	var msg CustomerMessage
	if err := unmarshalEvent(ev.Data, &msg); err != nil || msg.SessionId == "" || msg.Message == "" {
		ev.client.queueEvent(ErrorEvent("Session ID and message are required"))
		return
	}

	body := strings.TrimSpace(msg.Message)
	name := msg.CustomerName
	if name == "" {
		name = types.DefaultCustomerName
	}

	now := Now()

	// Fan out first; persistence is best-effort and must never gate delivery.
	rs.rooms.emitToAdmins(&ServerEvent{
		Event: EventNewCustomerMessage,
		Data: NewCustomerMessage{
			SessionId:    msg.SessionId,
			Message:      body,
			CustomerName: name,
			Timestamp:    now,
			Sender:       types.SenderCustomer,
			SocketId:     ev.client.id,
		},
	}, nil)

	ev.client.queueEvent(MessageSentEvent(msg.SessionId, newMessageId("msg"), now))
	rs.stats.Incr(stats.MessagesRelayed)

	go rs.persistMessage(store.AppendMessageParams{
		SessionId:    msg.SessionId,
		Sender:       types.SenderCustomer,
		Message:      body,
		CustomerName: msg.CustomerName,
	})
}

func (rs *RelayServer) handleAdminMessage(ev *ClientEvent) {
	c := ev.client
	if !c.admin {
		c.queueEvent(ErrorEvent("admin authorization required"))
		return
	}

	var msg AdminMessage
	if err := unmarshalEvent(ev.Data, &msg); err != nil || msg.SessionId == "" || msg.Message == "" {
		c.queueEvent(ErrorEvent("Session ID and message are required"))
		return
	}

	body := strings.TrimSpace(msg.Message)
	now := Now()

	rs.rooms.emitToRoom(msg.SessionId, &ServerEvent{
		Event: EventAdminResponse,
		Data: AdminResponse{
			Message:       body,
			Timestamp:     now,
			Sender:        types.SenderAdmin,
			AdminSocketId: c.id,
		},
	}, c)

	c.queueEvent(MessageSentEvent(msg.SessionId, newMessageId("admin_msg"), now))
	rs.stats.Incr(stats.MessagesRelayed)

	go rs.persistMessage(store.AppendMessageParams{
		SessionId: msg.SessionId,
		Sender:    types.SenderAdmin,
		Message:   body,
	})
}

func (rs *RelayServer) handleCustomerTyping(ev *ClientEvent) {
	var typing Typing
	if err := unmarshalEvent(ev.Data, &typing); err != nil || typing.SessionId == "" {
		ev.client.queueEvent(ErrorEvent("Session ID is required"))
		return
	}

	rs.rooms.emitToAdmins(&ServerEvent{
		Event: EventCustomerTypingStatus,
		Data: CustomerTypingStatus{
			SessionId: typing.SessionId,
			IsTyping:  typing.IsTyping,
			SocketId:  ev.client.id,
		},
	}, nil)
}

func (rs *RelayServer) handleAdminTyping(ev *ClientEvent) {
	c := ev.client
	if !c.admin {
		c.queueEvent(ErrorEvent("admin authorization required"))
		return
	}

	var typing Typing
	if err := unmarshalEvent(ev.Data, &typing); err != nil || typing.SessionId == "" {
		c.queueEvent(ErrorEvent("Session ID is required"))
		return
	}

	rs.rooms.emitToRoom(typing.SessionId, &ServerEvent{
		Event: EventAdminTypingStatus,
		Data:  AdminTypingStatus{IsTyping: typing.IsTyping},
	}, c)
}

func (rs *RelayServer) handleOrderCreated(ev *ClientEvent) {
	c := ev.client
	if !c.admin {
		c.queueEvent(ErrorEvent("admin authorization required"))
		return
	}

	var order OrderCreated
	if err := unmarshalEvent(ev.Data, &order); err != nil || order.SessionId == "" || order.TrackingId == "" {
		c.queueEvent(ErrorEvent("Session ID and tracking ID are required"))
		return
	}

	now := Now()

	// The triggering HTTP request already persisted the order; the relay
	// only announces it.
	rs.rooms.emitToRoom(order.SessionId, &ServerEvent{
		Event: EventOrderNotification,
		Data: OrderNotification{
			Type:         "order_created",
			TrackingId:   order.TrackingId,
			OrderDetails: order.OrderDetails,
			Timestamp:    now,
		},
	}, c)

	rs.rooms.emitToAdmins(&ServerEvent{
		Event: EventNewOrderCreated,
		Data: NewOrderCreated{
			SessionId:    order.SessionId,
			TrackingId:   order.TrackingId,
			OrderDetails: order.OrderDetails,
			Timestamp:    now,
		},
	}, c)
}

func (rs *RelayServer) handleOrderStatusUpdate(ev *ClientEvent) {
	c := ev.client
	if !c.admin {
		c.queueEvent(ErrorEvent("admin authorization required"))
		return
	}

	var update OrderStatusUpdate
	if err := unmarshalEvent(ev.Data, &update); err != nil || update.TrackingId == "" || update.Status == "" {
		c.queueEvent(ErrorEvent("Tracking ID and status are required"))
		return
	}

	if !types.ValidStatus(update.Status) {
		c.queueEvent(ErrorEvent("Invalid status"))
		return
	}

	// Tracking pages are not room-scoped; everyone connected hears this.
	rs.emitToAll(&ServerEvent{
		Event: EventTrackingUpdate,
		Data: TrackingUpdate{
			TrackingId: update.TrackingId,
			Status:     update.Status,
			Note:       update.Note,
			Timestamp:  Now(),
			UpdatedBy:  types.SenderAdmin,
		},
	})
}

func (rs *RelayServer) handleCloseChat(ev *ClientEvent) {
	var closeReq CloseChat
	if err := unmarshalEvent(ev.Data, &closeReq); err != nil || closeReq.SessionId == "" {
		ev.client.queueEvent(ErrorEvent("Session ID is required"))
		return
	}

	rs.rooms.emitToRoom(closeReq.SessionId, &ServerEvent{
		Event: EventChatClosed,
		Data: ChatClosed{
			Message:   closedChatNotice,
			Timestamp: Now(),
		},
	}, ev.client)

	if rs.rooms.removeRoom(closeReq.SessionId) {
		rs.stats.Decr(stats.ActiveRooms)
	}

	go func() {
		if err := rs.store.CloseChat(closeReq.SessionId); err != nil {
			rs.log.Printf("close chat %q: %v", closeReq.SessionId, err)
		}
	}()
}

func (rs *RelayServer) handleChatHistory(ev *ClientEvent) {
	var req ChatHistoryRequest
	if err := unmarshalEvent(ev.Data, &req); err != nil || req.SessionId == "" {
		ev.client.queueEvent(ErrorEvent("Session ID is required"))
		return
	}

	c := ev.client
	go func() {
		chat, err := rs.store.GetChatBySession(req.SessionId)
		if err != nil {
			rs.log.Printf("chat history %q: %v", req.SessionId, err)
			c.queueEvent(ErrorEvent("Failed to load chat history"))
			return
		}

		c.queueEvent(&ServerEvent{
			Event: EventChatHistory,
			Data: ChatHistory{
				SessionId: req.SessionId,
				Messages:  chat.Messages,
				CustomerInfo: CustomerInfo{
					Name:     chat.CustomerName,
					JoinedAt: chat.CreatedAt,
				},
			},
		})
	}()
}

// emitToAll broadcasts to every live connection, including tracking-page
// viewers that belong to no room.
func (rs *RelayServer) emitToAll(ev *ServerEvent) {
	for c := range rs.clients {
		c.queueEvent(ev)
	}
}

// persistMessage appends to the durable store after fan-out has happened.
// Failures are logged only; the live chat already saw the message.
func (rs *RelayServer) persistMessage(params store.AppendMessageParams) {
	if _, err := rs.store.AppendChatMessage(params); err != nil {
		rs.log.Printf("persist message for session %q: %v", params.SessionId, err)
	}
}

// reapStaleRooms drops routing records for rooms that have had no connected
// customers past the staleness threshold. Persisted chats are untouched.
func (rs *RelayServer) reapStaleRooms(now time.Time) {
	removed := rs.rooms.sweep(now, rs.staleAfter)
	for _, sessionId := range removed {
		rs.log.Printf("reaped stale chat room %q", sessionId)
		rs.stats.Decr(stats.ActiveRooms)
	}
}

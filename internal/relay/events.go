package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/haulix/relay/internal/types"
	"github.com/teris-io/shortid"
)

// Inbound event names. These, together with the outbound names below and the
// payload field names, are the wire protocol shared with the chat widget,
// the admin dashboard and the tracking page.
const (
	EventJoinChat          = "join_chat"
	EventAdminJoin         = "admin_join"
	EventCustomerMessage   = "customer_message"
	EventAdminMessage      = "admin_message"
	EventCustomerTyping    = "customer_typing"
	EventAdminTyping       = "admin_typing"
	EventOrderCreated      = "order_created"
	EventOrderStatusUpdate = "order_status_update"
	EventCloseChat         = "close_chat"
	EventGetChatHistory    = "get_chat_history"
	EventPing              = "ping"
)

// Outbound event names.
const (
	EventNewCustomerMessage   = "new_customer_message"
	EventAdminResponse        = "admin_response"
	EventCustomerActivity     = "customer_activity"
	EventAdminStats           = "admin_stats"
	EventOrderNotification    = "order_notification"
	EventNewOrderCreated      = "new_order_created"
	EventTrackingUpdate       = "tracking_update"
	EventMessageSent          = "message_sent"
	EventChatClosed           = "chat_closed"
	EventChatHistory          = "chat_history"
	EventCustomerTypingStatus = "customer_typing_status"
	EventAdminTypingStatus    = "admin_typing_status"
	EventPong                 = "pong"
	EventError                = "error"
)

// ClientEvent is one inbound frame from a connection.
type ClientEvent struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	client *Client
}

// ServerEvent is one outbound frame to a connection.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type JoinChat struct {
	SessionId string `json:"sessionId"`
}

type CustomerMessage struct {
	SessionId    string `json:"sessionId"`
	Message      string `json:"message"`
	CustomerName string `json:"customerName"`
}

type AdminMessage struct {
	SessionId string `json:"sessionId"`
	Message   string `json:"message"`
}

type Typing struct {
	SessionId string `json:"sessionId"`
	IsTyping  bool   `json:"isTyping"`
}

type OrderCreated struct {
	SessionId    string          `json:"sessionId"`
	TrackingId   string          `json:"trackingId"`
	OrderDetails json.RawMessage `json:"orderDetails,omitempty"`
}

type OrderStatusUpdate struct {
	TrackingId string `json:"trackingId"`
	Status     string `json:"status"`
	Note       string `json:"note"`
}

type CloseChat struct {
	SessionId string `json:"sessionId"`
}

type ChatHistoryRequest struct {
	SessionId string `json:"sessionId"`
}

type CustomerActivity struct {
	SessionId string    `json:"sessionId"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SocketId  string    `json:"socketId"`
	Reason    string    `json:"reason,omitempty"`
}

type AdminStats struct {
	TotalCustomers  int       `json:"totalCustomers"`
	ActiveChatRooms int       `json:"activeChatRooms"`
	Timestamp       time.Time `json:"timestamp"`
}

type NewCustomerMessage struct {
	SessionId    string    `json:"sessionId"`
	Message      string    `json:"message"`
	CustomerName string    `json:"customerName"`
	Timestamp    time.Time `json:"timestamp"`
	Sender       string    `json:"sender"`
	SocketId     string    `json:"socketId"`
}

type AdminResponse struct {
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	Sender        string    `json:"sender"`
	AdminSocketId string    `json:"adminSocketId"`
}

type MessageSent struct {
	SessionId string    `json:"sessionId"`
	MessageId string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

type CustomerTypingStatus struct {
	SessionId string `json:"sessionId"`
	IsTyping  bool   `json:"isTyping"`
	SocketId  string `json:"socketId"`
}

type AdminTypingStatus struct {
	IsTyping bool `json:"isTyping"`
}

type OrderNotification struct {
	Type         string          `json:"type"`
	TrackingId   string          `json:"trackingId"`
	OrderDetails json.RawMessage `json:"orderDetails,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

type NewOrderCreated struct {
	SessionId    string          `json:"sessionId"`
	TrackingId   string          `json:"trackingId"`
	OrderDetails json.RawMessage `json:"orderDetails,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

type TrackingUpdate struct {
	TrackingId string    `json:"trackingId"`
	Status     string    `json:"status"`
	Note       string    `json:"note"`
	Timestamp  time.Time `json:"timestamp"`
	UpdatedBy  string    `json:"updatedBy"`
}

type ChatClosed struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type CustomerInfo struct {
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ChatHistory struct {
	SessionId    string              `json:"sessionId"`
	Messages     []types.ChatMessage `json:"messages"`
	CustomerInfo CustomerInfo        `json:"customerInfo"`
}

type Pong struct {
	Timestamp time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func ErrorEvent(msg string) *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data:  ErrorPayload{Message: msg},
	}
}

func PongEvent() *ServerEvent {
	return &ServerEvent{
		Event: EventPong,
		Data:  Pong{Timestamp: Now()},
	}
}

func MessageSentEvent(sessionId, messageId string, ts time.Time) *ServerEvent {
	return &ServerEvent{
		Event: EventMessageSent,
		Data: MessageSent{
			SessionId: sessionId,
			MessageId: messageId,
			Timestamp: ts,
		},
	}
}

// newMessageId generates the acknowledgment id the sending UI uses to
// reconcile optimistic state. Falls back to a timestamp id if the shortid
// generator fails.
func newMessageId(prefix string) string {
	sid, err := shortid.Generate()
	if err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixMilli())
	}
	return fmt.Sprintf("%s_%s", prefix, sid)
}

// unmarshalEvent decodes an inbound payload; an absent payload is an error
// so that required-field validation fires for empty frames.
func unmarshalEvent(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing event payload")
	}
	return json.Unmarshal(data, v)
}

// parseJoinChat accepts either a bare session id string or an object with a
// sessionId field; the widget historically sent the bare form.
func parseJoinChat(data json.RawMessage) (JoinChat, error) {
	var sessionId string
	if err := json.Unmarshal(data, &sessionId); err == nil {
		return JoinChat{SessionId: sessionId}, nil
	}

	var join JoinChat
	err := json.Unmarshal(data, &join)
	return join, err
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

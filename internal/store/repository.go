package store

import (
	"time"

	"github.com/haulix/relay/internal/types"
)

// Repository is the persistence collaborator the relay and HTTP layer depend
// on. Chat and Order aggregates are append-only: messages and status history
// entries are never mutated or deleted once written.
type Repository interface {
	Ping() error
	GetChatBySession(sessionId string) (types.Chat, error)
	AppendChatMessage(params AppendMessageParams) (types.Chat, error)
	ListActiveChats(limit int) ([]types.Chat, error)
	CloseChat(sessionId string) error
	CreateOrder(params CreateOrderParams) (types.Order, error)
	GetOrderByTrackingId(trackingId string) (types.Order, error)
	ListOrders(limit int) ([]types.Order, error)
	AppendOrderStatus(trackingId, status, note string) (types.Order, error)
}

type AppendMessageParams struct {
	SessionId    string
	Sender       string
	Message      string
	CustomerName string
}

type CreateOrderParams struct {
	ChatSessionId     string
	CustomerName      string
	Description       string
	PickupAddress     string
	DeliveryAddress   string
	EstimatedDelivery *time.Time
}

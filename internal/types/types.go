package types

import (
	"time"
)

// DefaultCustomerName is used whenever a customer has not supplied a name.
const DefaultCustomerName = "Anonymous Customer"

const (
	SenderCustomer = "customer"
	SenderAdmin    = "admin"
)

const (
	ChatStatusActive = "active"
	ChatStatusClosed = "closed"
)

type ChatMessage struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Chat struct {
	SessionId    string        `json:"sessionId"`
	CustomerName string        `json:"customerName"`
	Status       string        `json:"status"`
	Messages     []ChatMessage `json:"messages"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastActivity time.Time     `json:"lastActivity"`
}

// ValidSender reports whether s is a recognized message sender.
func ValidSender(s string) bool {
	return s == SenderCustomer || s == SenderAdmin
}

const (
	StatusCreated        = "created"
	StatusProcessing     = "processing"
	StatusInTransit      = "in_transit"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

// OrderStatuses is the fixed set of statuses an order may move through.
var OrderStatuses = []string{
	StatusCreated,
	StatusProcessing,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

// ValidStatus reports whether s is a member of the order status enum.
func ValidStatus(s string) bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type StatusUpdate struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

type Order struct {
	TrackingId        string         `json:"trackingId"`
	ChatSessionId     string         `json:"chatSessionId"`
	CustomerName      string         `json:"customerName"`
	Description       string         `json:"description"`
	CurrentStatus     string         `json:"currentStatus"`
	StatusHistory     []StatusUpdate `json:"statusHistory"`
	PickupAddress     string         `json:"pickupAddress"`
	DeliveryAddress   string         `json:"deliveryAddress"`
	CreatedAt         time.Time      `json:"createdAt"`
	EstimatedDelivery *time.Time     `json:"estimatedDelivery,omitempty"`
}

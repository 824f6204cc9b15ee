package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/haulix/relay/internal/relay"
	"github.com/haulix/relay/internal/store"
	"github.com/haulix/relay/internal/types"
)

const (
	activeChatLimit = 50
	orderListLimit  = 100
)

type AppendMessageRequest struct {
	SessionId    string `json:"sessionId"`
	Message      string `json:"message"`
	CustomerName string `json:"customerName"`
	Sender       string `json:"sender"`
}

type CreateOrderRequest struct {
	ChatSessionId     string     `json:"chatSessionId"`
	CustomerName      string     `json:"customerName"`
	Description       string     `json:"description"`
	PickupAddress     string     `json:"pickupAddress"`
	DeliveryAddress   string     `json:"deliveryAddress"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

type UpdateOrderStatusRequest struct {
	TrackingId string `json:"trackingId"`
	Status     string `json:"status"`
	Note       string `json:"note"`
}

type ChatResponse struct {
	Chat *types.Chat `json:"chat"`
}

type AppendMessageResponse struct {
	Success bool       `json:"success"`
	Chat    types.Chat `json:"chat"`
}

type ChatListResponse struct {
	Chats []types.Chat `json:"chats"`
}

type OrderResponse struct {
	Order types.Order `json:"order"`
}

type CreateOrderResponse struct {
	Success    bool        `json:"success"`
	Order      types.Order `json:"order"`
	TrackingId string      `json:"trackingId"`
}

type OrderListResponse struct {
	Orders []types.Order `json:"orders"`
}

type UpdateOrderStatusResponse struct {
	Success bool        `json:"success"`
	Order   types.Order `json:"order"`
}

func (s *HaulixApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *HaulixApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// getChat returns the transcript for a session. An unknown session is a null
// chat rather than a 404; the widget polls this before the first message
// exists.
func (s *HaulixApp) getChat(w http.ResponseWriter, r *http.Request) {
	sessionId := r.URL.Query().Get("sessionId")
	if sessionId == "" {
		errResp := NewBadRequestError("Session ID required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.db.GetChatBySession(sessionId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeJson(w, http.StatusOK, ChatResponse{Chat: nil})
			return
		}
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, ChatResponse{Chat: &chat})
}

func (s *HaulixApp) appendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.SessionId == "" || req.Message == "" {
		errResp := NewBadRequestError("Session ID and message are required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sender := req.Sender
	if sender == "" {
		sender = types.SenderCustomer
	}
	if !types.ValidSender(sender) {
		errResp := NewBadRequestError("Invalid sender")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.db.AppendChatMessage(store.AppendMessageParams{
		SessionId:    req.SessionId,
		Sender:       sender,
		Message:      req.Message,
		CustomerName: req.CustomerName,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, AppendMessageResponse{Success: true, Chat: chat})
}

func (s *HaulixApp) listActiveChats(w http.ResponseWriter, _ *http.Request) {
	chats, err := s.db.ListActiveChats(activeChatLimit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if chats == nil {
		chats = []types.Chat{}
	}

	s.writeJson(w, http.StatusOK, ChatListResponse{Chats: chats})
}

func (s *HaulixApp) getOrders(w http.ResponseWriter, r *http.Request) {
	trackingId := r.URL.Query().Get("trackingId")
	if trackingId != "" {
		order, err := s.db.GetOrderByTrackingId(trackingId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, OrderResponse{Order: order})
		return
	}

	orders, err := s.db.ListOrders(orderListLimit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if orders == nil {
		orders = []types.Order{}
	}

	s.writeJson(w, http.StatusOK, OrderListResponse{Orders: orders})
}

func (s *HaulixApp) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.ChatSessionId == "" || req.Description == "" || req.DeliveryAddress == "" {
		errResp := NewBadRequestError("Chat session ID, description and delivery address are required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	order, err := s.db.CreateOrder(store.CreateOrderParams{
		ChatSessionId:     req.ChatSessionId,
		CustomerName:      req.CustomerName,
		Description:       req.Description,
		PickupAddress:     req.PickupAddress,
		DeliveryAddress:   req.DeliveryAddress,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, CreateOrderResponse{
		Success:    true,
		Order:      order,
		TrackingId: order.TrackingId,
	})
}

func (s *HaulixApp) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.TrackingId == "" || req.Status == "" {
		errResp := NewBadRequestError("Tracking ID and status are required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !types.ValidStatus(req.Status) {
		errResp := NewBadRequestError("Invalid status")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	order, err := s.db.AppendOrderStatus(req.TrackingId, req.Status, req.Note)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, UpdateOrderStatusResponse{Success: true, Order: order})
}

func (s *HaulixApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}

	// the admin capability is decided once, at upgrade time
	admin := s.isAdminRequest(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := relay.NewClient(conn, s.rs, s.log, admin)
	s.rs.RegisterChan <- client

	go client.Write()
	go client.Read()
}

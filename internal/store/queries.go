package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haulix/relay/internal/types"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// createOrderAttempts bounds the retry loop on tracking id collisions.
const createOrderAttempts = 3

func (db *PgRepository) GetChatBySession(sessionId string) (types.Chat, error) {
	row := db.conn.QueryRow(
		"SELECT id, session_id, customer_name, status, created_at, last_activity FROM chats "+
			"WHERE session_id = $1 LIMIT 1",
		sessionId,
	)

	var chatId int
	var chat types.Chat
	err := row.Scan(
		&chatId,
		&chat.SessionId,
		&chat.CustomerName,
		&chat.Status,
		&chat.CreatedAt,
		&chat.LastActivity,
	)
	if err != nil {
		return types.Chat{}, err
	}

	chat.Messages, err = db.getChatMessages(chatId)
	if err != nil {
		return types.Chat{}, fmt.Errorf("get chat messages: %w", err)
	}

	return chat, nil
}

func (db *PgRepository) getChatMessages(chatId int) ([]types.ChatMessage, error) {
	rows, err := db.conn.Query(
		"SELECT sender, message, created_at FROM chat_messages "+
			"WHERE chat_id = $1 ORDER BY created_at, id",
		chatId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []types.ChatMessage
	for rows.Next() {
		var msg types.ChatMessage
		if err := rows.Scan(&msg.Sender, &msg.Message, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgRepository) AppendChatMessage(params AppendMessageParams) (types.Chat, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return types.Chat{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var chatId int
	err = tx.QueryRow("SELECT id FROM chats WHERE session_id = $1 LIMIT 1", params.SessionId).Scan(&chatId)
	if errors.Is(err, sql.ErrNoRows) {
		name := params.CustomerName
		if name == "" {
			name = types.DefaultCustomerName
		}

		err = tx.QueryRow(
			"INSERT INTO chats (session_id, customer_name, status, created_at, last_activity) "+
				"VALUES ($1, $2, $3, $4, $4) RETURNING id",
			params.SessionId,
			name,
			types.ChatStatusActive,
			now,
		).Scan(&chatId)
	}
	if err != nil {
		return types.Chat{}, fmt.Errorf("upsert chat: %w", err)
	}

	// A real name supplied later overwrites the default in place.
	if params.CustomerName != "" && params.CustomerName != types.DefaultCustomerName {
		if _, err := tx.Exec("UPDATE chats SET customer_name = $2 WHERE id = $1", chatId, params.CustomerName); err != nil {
			return types.Chat{}, fmt.Errorf("update customer name: %w", err)
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO chat_messages (chat_id, sender, message, created_at) VALUES ($1, $2, $3, $4)",
		chatId,
		params.Sender,
		params.Message,
		now,
	); err != nil {
		return types.Chat{}, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.Exec("UPDATE chats SET last_activity = $2 WHERE id = $1", chatId, now); err != nil {
		return types.Chat{}, fmt.Errorf("update last activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Chat{}, fmt.Errorf("commit: %w", err)
	}

	return db.GetChatBySession(params.SessionId)
}

func (db *PgRepository) ListActiveChats(limit int) ([]types.Chat, error) {
	rows, err := db.conn.Query(
		"SELECT id, session_id, customer_name, status, created_at, last_activity FROM chats "+
			"WHERE status = $1 ORDER BY last_activity DESC LIMIT $2",
		types.ChatStatusActive,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type chatRow struct {
		id   int
		chat types.Chat
	}

	var chatRows []chatRow
	for rows.Next() {
		var cr chatRow
		if err := rows.Scan(
			&cr.id,
			&cr.chat.SessionId,
			&cr.chat.CustomerName,
			&cr.chat.Status,
			&cr.chat.CreatedAt,
			&cr.chat.LastActivity,
		); err != nil {
			return nil, err
		}
		chatRows = append(chatRows, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var chats []types.Chat
	for _, cr := range chatRows {
		messages, err := db.getChatMessages(cr.id)
		if err != nil {
			return nil, fmt.Errorf("get chat messages: %w", err)
		}
		cr.chat.Messages = messages
		chats = append(chats, cr.chat)
	}

	return chats, nil
}

func (db *PgRepository) CloseChat(sessionId string) error {
	res, err := db.conn.Exec(
		"UPDATE chats SET status = $2 WHERE session_id = $1",
		sessionId,
		types.ChatStatusClosed,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgRepository) CreateOrder(params CreateOrderParams) (types.Order, error) {
	name := params.CustomerName
	if name == "" {
		name = types.DefaultCustomerName
	}

	var trackingId string
	var lastErr error
	for range createOrderAttempts {
		trackingId = newTrackingId()
		lastErr = db.insertOrder(trackingId, name, params)
		if lastErr == nil {
			return db.GetOrderByTrackingId(trackingId)
		}

		var pqErr *pq.Error
		if errors.As(lastErr, &pqErr) && pqErr.Code == uniqueViolation {
			// tracking id collision, regenerate and retry
			continue
		}
		break
	}

	return types.Order{}, fmt.Errorf("create order: %w", lastErr)
}

func (db *PgRepository) insertOrder(trackingId, customerName string, params CreateOrderParams) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var orderId int
	err = tx.QueryRow(
		"INSERT INTO orders (tracking_id, chat_session_id, customer_name, description, "+
			"pickup_address, delivery_address, current_status, estimated_delivery, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id",
		trackingId,
		params.ChatSessionId,
		customerName,
		params.Description,
		params.PickupAddress,
		params.DeliveryAddress,
		types.StatusCreated,
		params.EstimatedDelivery,
		now,
	).Scan(&orderId)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO order_status_history (order_id, status, note, created_at) VALUES ($1, $2, $3, $4)",
		orderId,
		types.StatusCreated,
		"Order created",
		now,
	); err != nil {
		return fmt.Errorf("insert initial status: %w", err)
	}

	return tx.Commit()
}

func (db *PgRepository) GetOrderByTrackingId(trackingId string) (types.Order, error) {
	row := db.conn.QueryRow(
		"SELECT id, tracking_id, chat_session_id, customer_name, description, pickup_address, "+
			"delivery_address, current_status, estimated_delivery, created_at FROM orders "+
			"WHERE tracking_id = $1 LIMIT 1",
		strings.ToUpper(trackingId),
	)

	orderId, order, err := scanOrder(row)
	if err != nil {
		return types.Order{}, err
	}

	order.StatusHistory, err = db.getStatusHistory(orderId)
	if err != nil {
		return types.Order{}, fmt.Errorf("get status history: %w", err)
	}

	return order, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (int, types.Order, error) {
	var orderId int
	var order types.Order
	var estimatedDelivery sql.NullTime
	err := row.Scan(
		&orderId,
		&order.TrackingId,
		&order.ChatSessionId,
		&order.CustomerName,
		&order.Description,
		&order.PickupAddress,
		&order.DeliveryAddress,
		&order.CurrentStatus,
		&estimatedDelivery,
		&order.CreatedAt,
	)
	if err != nil {
		return 0, types.Order{}, err
	}

	if estimatedDelivery.Valid {
		order.EstimatedDelivery = &estimatedDelivery.Time
	}

	return orderId, order, nil
}

func (db *PgRepository) getStatusHistory(orderId int) ([]types.StatusUpdate, error) {
	rows, err := db.conn.Query(
		"SELECT status, note, created_at FROM order_status_history "+
			"WHERE order_id = $1 ORDER BY created_at, id",
		orderId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []types.StatusUpdate
	for rows.Next() {
		var update types.StatusUpdate
		if err := rows.Scan(&update.Status, &update.Note, &update.Timestamp); err != nil {
			return nil, err
		}
		history = append(history, update)
	}

	return history, rows.Err()
}

func (db *PgRepository) ListOrders(limit int) ([]types.Order, error) {
	rows, err := db.conn.Query(
		"SELECT id, tracking_id, chat_session_id, customer_name, description, pickup_address, "+
			"delivery_address, current_status, estimated_delivery, created_at FROM orders "+
			"ORDER BY created_at DESC LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type orderRow struct {
		id    int
		order types.Order
	}

	var orderRows []orderRow
	for rows.Next() {
		id, order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orderRows = append(orderRows, orderRow{id: id, order: order})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var orders []types.Order
	for _, or := range orderRows {
		history, err := db.getStatusHistory(or.id)
		if err != nil {
			return nil, fmt.Errorf("get status history: %w", err)
		}
		or.order.StatusHistory = history
		orders = append(orders, or.order)
	}

	return orders, nil
}

func (db *PgRepository) AppendOrderStatus(trackingId, status, note string) (types.Order, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return types.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var orderId int
	err = tx.QueryRow(
		"SELECT id FROM orders WHERE tracking_id = $1 LIMIT 1",
		strings.ToUpper(trackingId),
	).Scan(&orderId)
	if err != nil {
		return types.Order{}, err
	}

	now := time.Now().UTC()

	if _, err := tx.Exec(
		"INSERT INTO order_status_history (order_id, status, note, created_at) VALUES ($1, $2, $3, $4)",
		orderId,
		status,
		note,
		now,
	); err != nil {
		return types.Order{}, fmt.Errorf("insert status: %w", err)
	}

	if _, err := tx.Exec("UPDATE orders SET current_status = $2 WHERE id = $1", orderId, status); err != nil {
		return types.Order{}, fmt.Errorf("update current status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Order{}, fmt.Errorf("commit: %w", err)
	}

	return db.GetOrderByTrackingId(trackingId)
}

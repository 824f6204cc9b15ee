package store

import (
	"github.com/haulix/relay/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) GetChatBySession(sessionId string) (types.Chat, error) {
	args := m.Called(sessionId)
	return args.Get(0).(types.Chat), args.Error(1)
}
func (m *MockRepository) AppendChatMessage(params AppendMessageParams) (types.Chat, error) {
	args := m.Called(params)
	return args.Get(0).(types.Chat), args.Error(1)
}
func (m *MockRepository) ListActiveChats(limit int) ([]types.Chat, error) {
	args := m.Called(limit)
	return args.Get(0).([]types.Chat), args.Error(1)
}
func (m *MockRepository) CloseChat(sessionId string) error {
	args := m.Called(sessionId)
	return args.Error(0)
}
func (m *MockRepository) CreateOrder(params CreateOrderParams) (types.Order, error) {
	args := m.Called(params)
	return args.Get(0).(types.Order), args.Error(1)
}
func (m *MockRepository) GetOrderByTrackingId(trackingId string) (types.Order, error) {
	args := m.Called(trackingId)
	return args.Get(0).(types.Order), args.Error(1)
}
func (m *MockRepository) ListOrders(limit int) ([]types.Order, error) {
	args := m.Called(limit)
	return args.Get(0).([]types.Order), args.Error(1)
}
func (m *MockRepository) AppendOrderStatus(trackingId, status, note string) (types.Order, error) {
	args := m.Called(trackingId, status, note)
	return args.Get(0).(types.Order), args.Error(1)
}

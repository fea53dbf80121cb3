package gateway

import (
	"context"
	"time"

	"github.com/Domenick1991/airtickets/internal/clients"
	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockFlightsClient struct {
	mock.Mock
}

func (m *MockFlightsClient) List(ctx context.Context, page, size int) (*domain.FlightPage, error) {
	args := m.Called(ctx, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightPage), args.Error(1)
}

func (m *MockFlightsClient) GetByNumber(ctx context.Context, flightNumber string) (*domain.Flight, error) {
	args := m.Called(ctx, flightNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockTicketsClient struct {
	mock.Mock
}

func (m *MockTicketsClient) Create(ctx context.Context, req clients.CreateTicketRequest) (*domain.Ticket, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(context.Context, clients.CreateTicketRequest) *domain.Ticket); ok {
		return fn(ctx, req), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketsClient) GetByUID(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketsClient) ListByUsername(ctx context.Context, username string) ([]domain.Ticket, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketsClient) Cancel(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

type MockPrivilegesClient struct {
	mock.Mock
}

func (m *MockPrivilegesClient) GetByUsername(ctx context.Context, username string) (*domain.PrivilegeAccount, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrivilegeAccount), args.Error(1)
}

func (m *MockPrivilegesClient) CreateAccount(ctx context.Context, username string, status domain.PrivilegeStatus) (*domain.PrivilegeAccount, error) {
	args := m.Called(ctx, username, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrivilegeAccount), args.Error(1)
}

func (m *MockPrivilegesClient) History(ctx context.Context, username string) ([]domain.PrivilegeTransaction, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PrivilegeTransaction), args.Error(1)
}

func (m *MockPrivilegesClient) Credit(ctx context.Context, accountID int64, req clients.MutationRequest) (*domain.BalanceMutation, error) {
	args := m.Called(ctx, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceMutation), args.Error(1)
}

func (m *MockPrivilegesClient) DebitUpToAvailable(ctx context.Context, accountID int64, req clients.MutationRequest) (*domain.BalanceMutation, error) {
	args := m.Called(ctx, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceMutation), args.Error(1)
}

func (m *MockPrivilegesClient) Rollback(ctx context.Context, username string, ticketUID uuid.UUID) (*domain.BalanceMutation, error) {
	args := m.Called(ctx, username, ticketUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceMutation), args.Error(1)
}

// MockIntentStore records the status of every saved intent in order.
type MockIntentStore struct {
	mock.Mock
	saved []domain.IntentStatus
}

func (m *MockIntentStore) Reserve(ctx context.Context, intent *domain.PurchaseIntent) (*domain.PurchaseIntent, error) {
	args := m.Called(ctx, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseIntent), args.Error(1)
}

func (m *MockIntentStore) Save(ctx context.Context, intent *domain.PurchaseIntent) error {
	m.saved = append(m.saved, intent.Status)
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockIntentStore) Get(ctx context.Context, ticketUID uuid.UUID) (*domain.PurchaseIntent, error) {
	args := m.Called(ctx, ticketUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseIntent), args.Error(1)
}

func (m *MockIntentStore) ListUnfinished(ctx context.Context, cutoff time.Time) ([]domain.PurchaseIntent, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PurchaseIntent), args.Error(1)
}

func (m *MockIntentStore) lastSaved() domain.IntentStatus {
	if len(m.saved) == 0 {
		return ""
	}
	return m.saved[len(m.saved)-1]
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func (m *MockProducer) PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries uint) error {
	args := m.Called(ctx, topic, key, value, maxRetries)
	return args.Error(0)
}

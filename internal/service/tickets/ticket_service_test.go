package tickets

import (
	"context"
	"testing"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByUID(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListByUsername(ctx context.Context, username string) ([]domain.Ticket, error) {
	args := m.Called(ctx, username)
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Delete(ctx context.Context, ticketUID uuid.UUID) error {
	args := m.Called(ctx, ticketUID)
	return args.Error(0)
}

func (m *MockTicketRepository) Cancel(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func TestTicketService_Create_Success(t *testing.T) {
	repo := &MockTicketRepository{}
	service := NewTicketService(repo, zerolog.Nop())
	ctx := context.Background()

	input := CreateTicketInput{TicketUID: uuid.New(), Username: "Test Max", FlightNumber: "AFL031", Price: 1500}
	repo.On("Create", ctx, mock.MatchedBy(func(t *domain.Ticket) bool {
		return t.TicketUID == input.TicketUID && t.Price == 1500 && t.Username == "Test Max"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Ticket).Status = domain.TicketStatusPaid
	}).Return(nil).Once()

	ticket, err := service.Create(ctx, input)

	assert.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPaid, ticket.Status)
	repo.AssertExpectations(t)
}

func TestTicketService_Create_ValidationErrors(t *testing.T) {
	service := NewTicketService(&MockTicketRepository{}, zerolog.Nop())
	ctx := context.Background()

	testCases := []struct {
		name  string
		input CreateTicketInput
	}{
		{"missing uid", CreateTicketInput{Username: "u", FlightNumber: "AFL031"}},
		{"missing username", CreateTicketInput{TicketUID: uuid.New(), FlightNumber: "AFL031"}},
		{"missing flight", CreateTicketInput{TicketUID: uuid.New(), Username: "u"}},
		{"negative price", CreateTicketInput{TicketUID: uuid.New(), Username: "u", FlightNumber: "AFL031", Price: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ticket, err := service.Create(ctx, tc.input)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Nil(t, ticket)
		})
	}
}

func TestTicketService_Create_DuplicateConflicts(t *testing.T) {
	repo := &MockTicketRepository{}
	service := NewTicketService(repo, zerolog.Nop())
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(domain.ErrConflict).Once()

	ticket, err := service.Create(ctx, CreateTicketInput{TicketUID: uuid.New(), Username: "u", FlightNumber: "AFL031", Price: 1})

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Nil(t, ticket)
}

func TestTicketService_ListByUsername(t *testing.T) {
	repo := &MockTicketRepository{}
	service := NewTicketService(repo, zerolog.Nop())
	ctx := context.Background()

	tickets := []domain.Ticket{{TicketUID: uuid.New(), Username: "Test Max"}}
	repo.On("ListByUsername", ctx, "Test Max").Return(tickets, nil).Once()

	result, err := service.ListByUsername(ctx, "Test Max")
	assert.NoError(t, err)
	assert.Equal(t, tickets, result)

	_, err = service.ListByUsername(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTicketService_DeleteAndCancel(t *testing.T) {
	repo := &MockTicketRepository{}
	service := NewTicketService(repo, zerolog.Nop())
	ctx := context.Background()
	uid := uuid.New()

	repo.On("Delete", ctx, uid).Return(domain.ErrNotFound).Once()
	assert.ErrorIs(t, service.Delete(ctx, uid), domain.ErrNotFound)

	canceled := &domain.Ticket{TicketUID: uid, Status: domain.TicketStatusCanceled}
	repo.On("Cancel", ctx, uid).Return(canceled, nil).Once()
	ticket, err := service.Cancel(ctx, uid)
	assert.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCanceled, ticket.Status)

	repo.AssertExpectations(t)
}

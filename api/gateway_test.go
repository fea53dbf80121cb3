package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/Domenick1991/airtickets/internal/service/gateway"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGatewayUseCase struct {
	mock.Mock
}

func (m *MockGatewayUseCase) ListFlights(ctx context.Context, page, size int) (*domain.FlightPage, error) {
	args := m.Called(ctx, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightPage), args.Error(1)
}

func (m *MockGatewayUseCase) ListTickets(ctx context.Context, username string) ([]gateway.TicketView, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.TicketView), args.Error(1)
}

func (m *MockGatewayUseCase) GetTicket(ctx context.Context, username string, ticketUID uuid.UUID) (*gateway.TicketView, error) {
	args := m.Called(ctx, username, ticketUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.TicketView), args.Error(1)
}

func (m *MockGatewayUseCase) Me(ctx context.Context, username string) (*gateway.UserInfo, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.UserInfo), args.Error(1)
}

func (m *MockGatewayUseCase) Privilege(ctx context.Context, username string) (*gateway.PrivilegeInfo, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PrivilegeInfo), args.Error(1)
}

func (m *MockGatewayUseCase) Purchase(ctx context.Context, req domain.PurchaseRequest) (*domain.PurchaseReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseReceipt), args.Error(1)
}

func (m *MockGatewayUseCase) Cancel(ctx context.Context, username string, ticketUID uuid.UUID) error {
	args := m.Called(ctx, username, ticketUID)
	return args.Error(0)
}

func newGatewayRouter(service gateway.GatewayUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewGatewayHandler(service).Register(router.Group("/api/v1"))
	return router
}

func serve(router http.Handler, method, target, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGateway_MissingUserHeader(t *testing.T) {
	service := &MockGatewayUseCase{}
	w := serve(newGatewayRouter(service), http.MethodGet, "/api/v1/me", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
}

func TestGateway_ListFlights(t *testing.T) {
	service := &MockGatewayUseCase{}
	service.On("ListFlights", mock.Anything, 1, 10).Return(&domain.FlightPage{
		Page: 1, PageSize: 10, TotalElements: 1,
		Items: []domain.Flight{{
			FlightNumber:  "AFL031",
			DepartureTime: time.Date(2021, 10, 8, 20, 0, 0, 0, time.UTC),
			FromAirport:   domain.Airport{Name: "Пулково", Country: "Россия"},
			ToAirport:     domain.Airport{Name: "Шереметьево", Country: "Россия"},
			Price:         1500,
		}},
	}, nil).Once()

	w := serve(newGatewayRouter(service), http.MethodGet, "/api/v1/flights?page=1&size=10", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"page":1,"pageSize":10,"totalElements":1,"items":[{
		"flightNumber":"AFL031","fromAirport":"Россия, Пулково","toAirport":"Россия, Шереметьево",
		"date":"2021-10-08T20:00:00Z","price":1500}]}`, w.Body.String())
	service.AssertExpectations(t)
}

func TestGateway_Purchase(t *testing.T) {
	service := &MockGatewayUseCase{}
	uid := uuid.New()
	service.On("Purchase", mock.Anything, domain.PurchaseRequest{
		Username: "Test Max", FlightNumber: "AFL031", Price: 1500, PaidFromBalance: true, IdempotencyKey: "abc",
	}).Return(&domain.PurchaseReceipt{
		TicketUID:     uid,
		FlightNumber:  "AFL031",
		Price:         1500,
		PaidByMoney:   1450,
		PaidByBonuses: 50,
		Status:        domain.TicketStatusPaid,
		Privilege:     domain.PrivilegeShortInfo{Balance: 0, Status: domain.PrivilegeStatusGold},
	}, nil).Once()

	router := newGatewayRouter(service)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets",
		bytes.NewBufferString(`{"flightNumber":"AFL031","price":1500,"paidFromBalance":true}`))
	req.Header.Set(userHeader, "Test Max")
	req.Header.Set(idempotencyKeyHeader, "abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp purchaseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uid, resp.TicketUID)
	assert.Equal(t, int64(50), resp.PaidByBonuses)
	assert.Equal(t, "GOLD", resp.Privilege.Status)
	service.AssertExpectations(t)
}

func TestGateway_Purchase_ValidationError(t *testing.T) {
	service := &MockGatewayUseCase{}
	service.On("Purchase", mock.Anything, mock.Anything).
		Return(nil, domain.NewValidationError("flight not found", domain.FieldError{Field: "flightNumber", Error: "unknown flight XXX"})).Once()

	w := serve(newGatewayRouter(service), http.MethodPost, "/api/v1/tickets", "Test Max", purchaseRequest{FlightNumber: "XXX"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"flight not found","errors":[{"field":"flightNumber","error":"unknown flight XXX"}]}`, w.Body.String())
}

func TestGateway_GetTicket_MalformedUID(t *testing.T) {
	service := &MockGatewayUseCase{}
	w := serve(newGatewayRouter(service), http.MethodGet, "/api/v1/tickets/not-a-uuid", "Test Max", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGateway_GetTicket_Forbidden(t *testing.T) {
	service := &MockGatewayUseCase{}
	uid := uuid.New()
	service.On("GetTicket", mock.Anything, "Test Max", uid).Return(nil, domain.ErrForbidden).Once()

	w := serve(newGatewayRouter(service), http.MethodGet, "/api/v1/tickets/"+uid.String(), "Test Max", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	service.AssertExpectations(t)
}

func TestGateway_Cancel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "ok", want: http.StatusNoContent},
		{name: "missing", err: domain.ErrNotFound, want: http.StatusNotFound},
		{name: "foreign", err: domain.ErrForbidden, want: http.StatusForbidden},
		{name: "not paid", err: domain.ErrConflict, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockGatewayUseCase{}
			uid := uuid.New()
			service.On("Cancel", mock.Anything, "Test Max", uid).Return(tt.err).Once()

			w := serve(newGatewayRouter(service), http.MethodDelete, "/api/v1/tickets/"+uid.String(), "Test Max", nil)

			assert.Equal(t, tt.want, w.Code)
			service.AssertExpectations(t)
		})
	}
}

func TestGateway_Me(t *testing.T) {
	service := &MockGatewayUseCase{}
	service.On("Me", mock.Anything, "Test Max").Return(&gateway.UserInfo{
		Tickets:   []gateway.TicketView{},
		Privilege: domain.PrivilegeShortInfo{Balance: 150, Status: domain.PrivilegeStatusGold},
	}, nil).Once()

	w := serve(newGatewayRouter(service), http.MethodGet, "/api/v1/me", "Test Max", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tickets":[],"privilege":{"balance":150,"status":"GOLD"}}`, w.Body.String())
}

func TestGateway_Privilege(t *testing.T) {
	service := &MockGatewayUseCase{}
	uid := uuid.New()
	service.On("Privilege", mock.Anything, "Test Max").Return(&gateway.PrivilegeInfo{
		Balance: 150,
		Status:  domain.PrivilegeStatusGold,
		History: []domain.PrivilegeTransaction{{
			TicketUID:     uid,
			Datetime:      time.Date(2021, 10, 8, 19, 59, 19, 0, time.UTC),
			BalanceDiff:   150,
			OperationType: domain.OperationFillIn,
		}},
	}, nil).Once()

	w := serve(newGatewayRouter(service), http.MethodGet, "/api/v1/privilege", "Test Max", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp privilegeInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, "FILL_IN_BALANCE", resp.History[0].OperationType)
	assert.Equal(t, uid, resp.History[0].TicketUID)
}

func TestGateway_ListTickets_UnknownUser(t *testing.T) {
	service := &MockGatewayUseCase{}
	service.On("ListTickets", mock.Anything, "ghost").Return(nil, domain.ErrNotFound).Once()

	w := serve(newGatewayRouter(service), http.MethodGet, "/api/v1/tickets", "ghost", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

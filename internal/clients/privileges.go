package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type MutationRequest struct {
	TicketUID    uuid.UUID `json:"ticket_uid"`
	FlightNumber string    `json:"flight_number"`
	Amount       int64     `json:"amount"`
}

type createAccountRequest struct {
	Username string                 `json:"username"`
	Status   domain.PrivilegeStatus `json:"status"`
}

type PrivilegesClient struct {
	baseClient
}

func NewPrivilegesClient(baseURL string, opts Options, log zerolog.Logger) *PrivilegesClient {
	return &PrivilegesClient{baseClient: newBaseClient("privileges", baseURL, opts, log)}
}

func (c *PrivilegesClient) GetByUsername(ctx context.Context, username string) (*domain.PrivilegeAccount, error) {
	var account domain.PrivilegeAccount
	if err := c.do(ctx, http.MethodGet, "/api/v1/privilege/"+url.PathEscape(username), nil, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *PrivilegesClient) CreateAccount(ctx context.Context, username string, status domain.PrivilegeStatus) (*domain.PrivilegeAccount, error) {
	var account domain.PrivilegeAccount
	if err := c.do(ctx, http.MethodPost, "/api/v1/privilege", nil, createAccountRequest{Username: username, Status: status}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *PrivilegesClient) History(ctx context.Context, username string) ([]domain.PrivilegeTransaction, error) {
	history := []domain.PrivilegeTransaction{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/privilege/"+url.PathEscape(username)+"/history", nil, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *PrivilegesClient) Debit(ctx context.Context, accountID int64, req MutationRequest) (*domain.BalanceMutation, error) {
	return c.mutate(ctx, accountID, "debit", req)
}

func (c *PrivilegesClient) Credit(ctx context.Context, accountID int64, req MutationRequest) (*domain.BalanceMutation, error) {
	return c.mutate(ctx, accountID, "credit", req)
}

func (c *PrivilegesClient) DebitUpToAvailable(ctx context.Context, accountID int64, req MutationRequest) (*domain.BalanceMutation, error) {
	return c.mutate(ctx, accountID, "debit-available", req)
}

func (c *PrivilegesClient) Rollback(ctx context.Context, username string, ticketUID uuid.UUID) (*domain.BalanceMutation, error) {
	var mutation domain.BalanceMutation
	path := "/api/v1/privilege/" + url.PathEscape(username) + "/rollback/" + ticketUID.String()
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &mutation); err != nil {
		return nil, err
	}
	return &mutation, nil
}

func (c *PrivilegesClient) mutate(ctx context.Context, accountID int64, operation string, req MutationRequest) (*domain.BalanceMutation, error) {
	var mutation domain.BalanceMutation
	path := "/api/v1/accounts/" + strconv.FormatInt(accountID, 10) + "/" + operation
	if err := c.do(ctx, http.MethodPost, path, nil, req, &mutation); err != nil {
		return nil, err
	}
	return &mutation, nil
}

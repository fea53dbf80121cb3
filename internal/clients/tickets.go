package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CreateTicketRequest struct {
	TicketUID    uuid.UUID `json:"ticket_uid"`
	Username     string    `json:"username"`
	FlightNumber string    `json:"flight_number"`
	Price        int64     `json:"price"`
}

type TicketsClient struct {
	baseClient
}

func NewTicketsClient(baseURL string, opts Options, log zerolog.Logger) *TicketsClient {
	return &TicketsClient{baseClient: newBaseClient("tickets", baseURL, opts, log)}
}

// Create stores a PAID ticket. A conflict on a ticket identical to req means an
// earlier attempt already succeeded, so the stored ticket is returned.
func (c *TicketsClient) Create(ctx context.Context, req CreateTicketRequest) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := c.do(ctx, http.MethodPost, "/api/v1/tickets", nil, req, &ticket)
	if err == nil {
		return &ticket, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}

	existing, getErr := c.GetByUID(ctx, req.TicketUID)
	if getErr != nil {
		return nil, err
	}
	want := domain.Ticket{TicketUID: req.TicketUID, Username: req.Username, FlightNumber: req.FlightNumber, Price: req.Price}
	if !existing.SameOrder(want) {
		return nil, err
	}
	return existing, nil
}

func (c *TicketsClient) GetByUID(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := c.do(ctx, http.MethodGet, "/api/v1/tickets/"+ticketUID.String(), nil, nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *TicketsClient) ListByUsername(ctx context.Context, username string) ([]domain.Ticket, error) {
	tickets := []domain.Ticket{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/tickets", url.Values{"username": {username}}, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *TicketsClient) Cancel(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := c.do(ctx, http.MethodPatch, "/api/v1/tickets/"+ticketUID.String()+"/cancel", nil, nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *TicketsClient) Delete(ctx context.Context, ticketUID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/tickets/"+ticketUID.String(), nil, nil, nil)
}

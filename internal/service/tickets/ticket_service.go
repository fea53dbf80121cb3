package tickets

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/Domenick1991/airtickets/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type TicketUseCase interface {
	Create(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error)
	GetByUID(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error)
	ListByUsername(ctx context.Context, username string) ([]domain.Ticket, error)
	Delete(ctx context.Context, ticketUID uuid.UUID) error
	Cancel(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error)
}

type CreateTicketInput struct {
	TicketUID    uuid.UUID `json:"ticket_uid"`
	Username     string    `json:"username"`
	FlightNumber string    `json:"flight_number"`
	Price        int64     `json:"price"`
}

func (in CreateTicketInput) validate() error {
	switch {
	case in.TicketUID == uuid.Nil:
		return fmt.Errorf("%w: ticket uid is required", domain.ErrValidation)
	case strings.TrimSpace(in.Username) == "":
		return fmt.Errorf("%w: username is required", domain.ErrValidation)
	case strings.TrimSpace(in.FlightNumber) == "":
		return fmt.Errorf("%w: flight number is required", domain.ErrValidation)
	case in.Price < 0:
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	return nil
}

type TicketService struct {
	repo repository.TicketRepository
	log  zerolog.Logger
}

func NewTicketService(repo repository.TicketRepository, log zerolog.Logger) *TicketService {
	return &TicketService{repo: repo, log: log}
}

func (s *TicketService) Create(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		TicketUID:    input.TicketUID,
		Username:     input.Username,
		FlightNumber: input.FlightNumber,
		Price:        input.Price,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.log.Info().Str("ticket_uid", ticket.TicketUID.String()).Str("username", ticket.Username).Msg("ticket created")
	return ticket, nil
}

func (s *TicketService) GetByUID(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	return s.repo.GetByUID(ctx, ticketUID)
}

func (s *TicketService) ListByUsername(ctx context.Context, username string) ([]domain.Ticket, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	return s.repo.ListByUsername(ctx, username)
}

func (s *TicketService) Delete(ctx context.Context, ticketUID uuid.UUID) error {
	if err := s.repo.Delete(ctx, ticketUID); err != nil {
		return err
	}
	s.log.Info().Str("ticket_uid", ticketUID.String()).Msg("ticket deleted")
	return nil
}

func (s *TicketService) Cancel(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	ticket, err := s.repo.Cancel(ctx, ticketUID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("ticket_uid", ticketUID.String()).Msg("ticket canceled")
	return ticket, nil
}

var _ TicketUseCase = (*TicketService)(nil)

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByUID(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error)
	ListByUsername(ctx context.Context, username string) ([]domain.Ticket, error)
	Delete(ctx context.Context, ticketUID uuid.UUID) error
	Cancel(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error)
}

type PGTicketRepository struct {
	db *pgxpool.Pool
}

func NewTicketRepository(db *pgxpool.Pool) TicketRepository {
	return &PGTicketRepository{db: db}
}

const ticketColumns = `id, ticket_uid, username, flight_number, price, status, created_at, updated_at`

// Create inserts a PAID ticket. A taken ticket_uid leaves the table untouched.
func (r *PGTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	ticket.Status = domain.TicketStatusPaid
	err := r.db.QueryRow(ctx, `INSERT INTO ticket (ticket_uid, username, flight_number, price, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticket_uid) DO NOTHING
		RETURNING id, created_at, updated_at`,
		ticket.TicketUID, ticket.Username, ticket.FlightNumber, ticket.Price, ticket.Status).
		Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: ticket %s already exists", domain.ErrConflict, ticket.TicketUID)
	}
	return translate(err)
}

func (r *PGTicketRepository) GetByUID(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM ticket WHERE ticket_uid=$1`, ticketUID))
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

func (r *PGTicketRepository) ListByUsername(ctx context.Context, username string) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ticketColumns+` FROM ticket WHERE username=$1 ORDER BY id`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (r *PGTicketRepository) Delete(ctx context.Context, ticketUID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM ticket WHERE ticket_uid=$1`, ticketUID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Cancel moves a PAID ticket to CANCELED under a row lock.
func (r *PGTicketRepository) Cancel(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanTicket(tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM ticket WHERE ticket_uid=$1 FOR UPDATE`, ticketUID))
	if err != nil {
		return nil, translate(err)
	}
	if current.Status != domain.TicketStatusPaid {
		return nil, fmt.Errorf("%w: ticket %s is %s", domain.ErrConflict, ticketUID, current.Status)
	}

	updated, err := scanTicket(tx.QueryRow(ctx, `UPDATE ticket SET status=$1, updated_at=now()
		WHERE ticket_uid=$2 RETURNING `+ticketColumns, domain.TicketStatusCanceled, ticketUID))
	if err != nil {
		return nil, translate(err)
	}
	return updated, tx.Commit(ctx)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(&t.ID, &t.TicketUID, &t.Username, &t.FlightNumber, &t.Price, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

var _ TicketRepository = (*PGTicketRepository)(nil)

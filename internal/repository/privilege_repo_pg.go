package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRef selects an account either by id or by username.
type AccountRef struct {
	ID       int64
	Username string
}

func (r AccountRef) String() string {
	if r.Username != "" {
		return r.Username
	}
	return fmt.Sprintf("#%d", r.ID)
}

// MutationStep is the change a plan decided on. Operation is recorded as is,
// so a zero debit is still a DEBIT_THE_ACCOUNT row. Apply false replays
// without writing.
type MutationStep struct {
	Diff      int64
	Operation domain.OperationType
	Apply     bool
}

// MutationPlan decides the balance change for a ticket while the account row
// is locked. history holds the rows already recorded for that ticket, oldest first.
type MutationPlan func(account domain.PrivilegeAccount, history []domain.PrivilegeTransaction) (MutationStep, error)

type PrivilegeRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.PrivilegeAccount, error)
	Create(ctx context.Context, account *domain.PrivilegeAccount) error
	History(ctx context.Context, privilegeID int64) ([]domain.PrivilegeTransaction, error)
	HistoryEntry(ctx context.Context, privilegeID int64, ticketUID uuid.UUID) (*domain.PrivilegeTransaction, error)
	ApplyMutation(ctx context.Context, ref AccountRef, ticketUID uuid.UUID, plan MutationPlan) (*domain.BalanceMutation, error)
}

type PGPrivilegeRepository struct {
	db *pgxpool.Pool
}

func NewPrivilegeRepository(db *pgxpool.Pool) PrivilegeRepository {
	return &PGPrivilegeRepository{db: db}
}

const historyColumns = `id, privilege_id, ticket_uid, datetime, balance_diff, operation_type`

func (r *PGPrivilegeRepository) GetByUsername(ctx context.Context, username string) (*domain.PrivilegeAccount, error) {
	var a domain.PrivilegeAccount
	if err := r.db.QueryRow(ctx, `SELECT id, username, status, balance FROM privilege WHERE username=$1`, username).
		Scan(&a.ID, &a.Username, &a.Status, &a.Balance); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *PGPrivilegeRepository) Create(ctx context.Context, account *domain.PrivilegeAccount) error {
	err := r.db.QueryRow(ctx, `INSERT INTO privilege (username, status, balance) VALUES ($1, $2, $3) RETURNING id`,
		account.Username, account.Status, account.Balance).Scan(&account.ID)
	return translate(err)
}

func (r *PGPrivilegeRepository) History(ctx context.Context, privilegeID int64) ([]domain.PrivilegeTransaction, error) {
	return queryHistory(ctx, r.db, `SELECT `+historyColumns+` FROM privilege_history
		WHERE privilege_id=$1 ORDER BY datetime DESC, id DESC`, privilegeID)
}

func (r *PGPrivilegeRepository) HistoryEntry(ctx context.Context, privilegeID int64, ticketUID uuid.UUID) (*domain.PrivilegeTransaction, error) {
	tx, err := scanHistory(r.db.QueryRow(ctx, `SELECT `+historyColumns+` FROM privilege_history
		WHERE privilege_id=$1 AND ticket_uid=$2 ORDER BY id LIMIT 1`, privilegeID, ticketUID))
	if err != nil {
		return nil, translate(err)
	}
	return tx, nil
}

// ApplyMutation runs plan and persists its outcome in one transaction: the
// account row is locked, balance is adjusted relative to its current value and
// exactly one history row is appended.
func (r *PGPrivilegeRepository) ApplyMutation(ctx context.Context, ref AccountRef, ticketUID uuid.UUID, plan MutationPlan) (*domain.BalanceMutation, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var account domain.PrivilegeAccount
	lock := `SELECT id, username, status, balance FROM privilege WHERE id=$1 FOR UPDATE`
	var key any = ref.ID
	if ref.Username != "" {
		lock = `SELECT id, username, status, balance FROM privilege WHERE username=$1 FOR UPDATE`
		key = ref.Username
	}
	if err := tx.QueryRow(ctx, lock, key).Scan(&account.ID, &account.Username, &account.Status, &account.Balance); err != nil {
		return nil, fmt.Errorf("lock account %s: %w", ref, translate(err))
	}

	history, err := queryHistory(ctx, tx, `SELECT `+historyColumns+` FROM privilege_history
		WHERE privilege_id=$1 AND ticket_uid=$2 ORDER BY id`, account.ID, ticketUID)
	if err != nil {
		return nil, err
	}

	step, err := plan(account, history)
	if err != nil {
		return nil, err
	}
	if !step.Apply {
		mutation := &domain.BalanceMutation{Account: account}
		if len(history) > 0 {
			mutation.Transaction = history[len(history)-1]
		}
		return mutation, nil
	}
	if !step.Operation.Valid() {
		return nil, fmt.Errorf("%w: operation type %q", domain.ErrValidation, step.Operation)
	}
	if account.Balance+step.Diff < 0 {
		return nil, fmt.Errorf("%w: balance %d, change %d", domain.ErrInsufficientBalance, account.Balance, step.Diff)
	}

	if err := tx.QueryRow(ctx, `UPDATE privilege SET balance = balance + $1 WHERE id=$2 RETURNING balance`, step.Diff, account.ID).
		Scan(&account.Balance); err != nil {
		return nil, translate(err)
	}

	entry, err := scanHistory(tx.QueryRow(ctx, `INSERT INTO privilege_history (privilege_id, ticket_uid, balance_diff, operation_type)
		VALUES ($1, $2, $3, $4) RETURNING `+historyColumns, account.ID, ticketUID, step.Diff, step.Operation))
	if err != nil {
		return nil, translate(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &domain.BalanceMutation{Account: account, Transaction: *entry, Applied: true}, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryHistory(ctx context.Context, q querier, sql string, args ...any) ([]domain.PrivilegeTransaction, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.PrivilegeTransaction, 0)
	for rows.Next() {
		tx, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *tx)
	}
	return history, rows.Err()
}

func scanHistory(row pgx.Row) (*domain.PrivilegeTransaction, error) {
	var t domain.PrivilegeTransaction
	if err := row.Scan(&t.ID, &t.PrivilegeID, &t.TicketUID, &t.Datetime, &t.BalanceDiff, &t.OperationType); err != nil {
		return nil, err
	}
	return &t, nil
}

var _ PrivilegeRepository = (*PGPrivilegeRepository)(nil)

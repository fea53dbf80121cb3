package privileges

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/Domenick1991/airtickets/internal/metrics"
	"github.com/Domenick1991/airtickets/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type PrivilegeUseCase interface {
	GetByUsername(ctx context.Context, username string) (*domain.PrivilegeAccount, error)
	GetHistory(ctx context.Context, username string) ([]domain.PrivilegeTransaction, error)
	GetHistoryEntry(ctx context.Context, username string, ticketUID uuid.UUID) (*domain.PrivilegeTransaction, error)
	CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.PrivilegeAccount, error)
	Debit(ctx context.Context, input MutationInput) (*domain.BalanceMutation, error)
	Credit(ctx context.Context, input MutationInput) (*domain.BalanceMutation, error)
	DebitUpToAvailable(ctx context.Context, input MutationInput) (*domain.BalanceMutation, error)
	Rollback(ctx context.Context, username string, ticketUID uuid.UUID) (*domain.BalanceMutation, error)
}

type CreateAccountInput struct {
	Username string                 `json:"username"`
	Status   domain.PrivilegeStatus `json:"status"`
	Balance  int64                  `json:"balance"`
}

// MutationInput addresses one balance change. A ticket uid carries at most one
// purchase mutation per account; repeating it replays the recorded result.
type MutationInput struct {
	AccountID    int64     `json:"account_id"`
	TicketUID    uuid.UUID `json:"ticket_uid"`
	FlightNumber string    `json:"flight_number"`
	Amount       int64     `json:"amount"`
}

func (in MutationInput) validate() error {
	switch {
	case in.TicketUID == uuid.Nil:
		return fmt.Errorf("%w: ticket uid is required", domain.ErrValidation)
	case in.Amount < 0:
		return fmt.Errorf("%w: amount must not be negative", domain.ErrValidation)
	}
	return nil
}

type PrivilegeService struct {
	repo repository.PrivilegeRepository
	log  zerolog.Logger
}

func NewPrivilegeService(repo repository.PrivilegeRepository, log zerolog.Logger) *PrivilegeService {
	return &PrivilegeService{repo: repo, log: log}
}

func (s *PrivilegeService) GetByUsername(ctx context.Context, username string) (*domain.PrivilegeAccount, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("privilege of %s: %w", username, err)
	}
	return account, nil
}

func (s *PrivilegeService) GetHistory(ctx context.Context, username string) ([]domain.PrivilegeTransaction, error) {
	account, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.repo.History(ctx, account.ID)
}

func (s *PrivilegeService) GetHistoryEntry(ctx context.Context, username string, ticketUID uuid.UUID) (*domain.PrivilegeTransaction, error) {
	account, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.HistoryEntry(ctx, account.ID, ticketUID)
	if err != nil {
		return nil, fmt.Errorf("history entry %s: %w", ticketUID, err)
	}
	return entry, nil
}

func (s *PrivilegeService) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.PrivilegeAccount, error) {
	if strings.TrimSpace(input.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if input.Status == "" {
		input.Status = domain.PrivilegeStatusBronze
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown privilege status %q", domain.ErrValidation, input.Status)
	}
	if input.Balance < 0 {
		return nil, fmt.Errorf("%w: balance must not be negative", domain.ErrValidation)
	}

	account := &domain.PrivilegeAccount{Username: input.Username, Status: input.Status, Balance: input.Balance}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	s.log.Info().Str("username", account.Username).Str("status", string(account.Status)).Msg("privilege account created")
	return account, nil
}

// Debit subtracts exactly Amount. It never clamps: debiting more than the
// balance fails with ErrInsufficientBalance.
func (s *PrivilegeService) Debit(ctx context.Context, input MutationInput) (*domain.BalanceMutation, error) {
	return s.mutate(ctx, "debit", input, debitPlan(input.Amount))
}

func (s *PrivilegeService) Credit(ctx context.Context, input MutationInput) (*domain.BalanceMutation, error) {
	return s.mutate(ctx, "credit", input, creditPlan(input.Amount))
}

// DebitUpToAvailable subtracts min(balance, Amount), decided under the account lock.
func (s *PrivilegeService) DebitUpToAvailable(ctx context.Context, input MutationInput) (*domain.BalanceMutation, error) {
	return s.mutate(ctx, "debit_up_to_available", input, debitUpToAvailablePlan(input.Amount))
}

// Rollback appends one compensating row that cancels the net effect of every
// row recorded for the ticket. History is never rewritten.
func (s *PrivilegeService) Rollback(ctx context.Context, username string, ticketUID uuid.UUID) (*domain.BalanceMutation, error) {
	if username == "" || ticketUID == uuid.Nil {
		return nil, fmt.Errorf("%w: username and ticket uid are required", domain.ErrValidation)
	}

	mutation, err := s.repo.ApplyMutation(ctx, repository.AccountRef{Username: username}, ticketUID, rollbackPlan)
	if err != nil {
		return nil, fmt.Errorf("rollback %s for %s: %w", ticketUID, username, err)
	}
	s.record("rollback", mutation, ticketUID, "")
	return mutation, nil
}

func (s *PrivilegeService) mutate(ctx context.Context, operation string, input MutationInput, plan repository.MutationPlan) (*domain.BalanceMutation, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	mutation, err := s.repo.ApplyMutation(ctx, repository.AccountRef{ID: input.AccountID}, input.TicketUID, plan)
	if err != nil {
		return nil, fmt.Errorf("%s account %d: %w", operation, input.AccountID, err)
	}
	s.record(operation, mutation, input.TicketUID, input.FlightNumber)
	return mutation, nil
}

func (s *PrivilegeService) record(operation string, mutation *domain.BalanceMutation, ticketUID uuid.UUID, flightNumber string) {
	metrics.LedgerMutations.WithLabelValues(operation, strconv.FormatBool(mutation.Applied)).Inc()

	event := s.log.Info()
	if !mutation.Applied {
		event = s.log.Debug()
	}
	event.
		Str("operation", operation).
		Str("username", mutation.Account.Username).
		Str("ticket_uid", ticketUID.String()).
		Str("flight_number", flightNumber).
		Int64("balance_diff", mutation.Transaction.BalanceDiff).
		Int64("balance", mutation.Account.Balance).
		Bool("applied", mutation.Applied).
		Msg("privilege balance mutation")
}

func replay(history []domain.PrivilegeTransaction) bool {
	return len(history) > 0
}

func debitPlan(amount int64) repository.MutationPlan {
	return func(_ domain.PrivilegeAccount, history []domain.PrivilegeTransaction) (repository.MutationStep, error) {
		if replay(history) {
			return repository.MutationStep{}, nil
		}
		return repository.MutationStep{Diff: -amount, Operation: domain.OperationDebit, Apply: true}, nil
	}
}

func creditPlan(amount int64) repository.MutationPlan {
	return func(_ domain.PrivilegeAccount, history []domain.PrivilegeTransaction) (repository.MutationStep, error) {
		if replay(history) {
			return repository.MutationStep{}, nil
		}
		return repository.MutationStep{Diff: amount, Operation: domain.OperationFillIn, Apply: true}, nil
	}
}

// debitUpToAvailablePlan records a debit even when the balance is empty, so
// a purchase paid from balance always leaves a DEBIT_THE_ACCOUNT row.
func debitUpToAvailablePlan(requested int64) repository.MutationPlan {
	return func(account domain.PrivilegeAccount, history []domain.PrivilegeTransaction) (repository.MutationStep, error) {
		if replay(history) {
			return repository.MutationStep{}, nil
		}
		return repository.MutationStep{Diff: -min(account.Balance, requested), Operation: domain.OperationDebit, Apply: true}, nil
	}
}

// rollbackPlan reverses the net diff of the ticket. A credit that has been
// partly spent since is reversed only down to a zero balance.
func rollbackPlan(account domain.PrivilegeAccount, history []domain.PrivilegeTransaction) (repository.MutationStep, error) {
	if len(history) == 0 {
		return repository.MutationStep{}, fmt.Errorf("no transactions for ticket: %w", domain.ErrNotFound)
	}
	diff := -domain.SumHistory(history)
	if account.Balance+diff < 0 {
		diff = -account.Balance
	}
	if diff == 0 {
		return repository.MutationStep{}, nil
	}
	return repository.MutationStep{Diff: diff, Operation: domain.OperationFor(diff), Apply: true}, nil
}

var _ PrivilegeUseCase = (*PrivilegeService)(nil)

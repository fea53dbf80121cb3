package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/airtickets/internal/clients"
	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/Domenick1991/airtickets/internal/kafka"
	"github.com/Domenick1991/airtickets/internal/metrics"
	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type GatewayUseCase interface {
	ListFlights(ctx context.Context, page, size int) (*domain.FlightPage, error)
	ListTickets(ctx context.Context, username string) ([]TicketView, error)
	GetTicket(ctx context.Context, username string, ticketUID uuid.UUID) (*TicketView, error)
	Me(ctx context.Context, username string) (*UserInfo, error)
	Privilege(ctx context.Context, username string) (*PrivilegeInfo, error)
	Purchase(ctx context.Context, req domain.PurchaseRequest) (*domain.PurchaseReceipt, error)
	Cancel(ctx context.Context, username string, ticketUID uuid.UUID) error
}

type FlightsClient interface {
	List(ctx context.Context, page, size int) (*domain.FlightPage, error)
	GetByNumber(ctx context.Context, flightNumber string) (*domain.Flight, error)
}

type TicketsClient interface {
	Create(ctx context.Context, req clients.CreateTicketRequest) (*domain.Ticket, error)
	GetByUID(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error)
	ListByUsername(ctx context.Context, username string) ([]domain.Ticket, error)
	Cancel(ctx context.Context, ticketUID uuid.UUID) (*domain.Ticket, error)
}

type PrivilegesClient interface {
	GetByUsername(ctx context.Context, username string) (*domain.PrivilegeAccount, error)
	CreateAccount(ctx context.Context, username string, status domain.PrivilegeStatus) (*domain.PrivilegeAccount, error)
	History(ctx context.Context, username string) ([]domain.PrivilegeTransaction, error)
	Credit(ctx context.Context, accountID int64, req clients.MutationRequest) (*domain.BalanceMutation, error)
	DebitUpToAvailable(ctx context.Context, accountID int64, req clients.MutationRequest) (*domain.BalanceMutation, error)
	Rollback(ctx context.Context, username string, ticketUID uuid.UUID) (*domain.BalanceMutation, error)
}

type IntentStore interface {
	Reserve(ctx context.Context, intent *domain.PurchaseIntent) (*domain.PurchaseIntent, error)
	Save(ctx context.Context, intent *domain.PurchaseIntent) error
	Get(ctx context.Context, ticketUID uuid.UUID) (*domain.PurchaseIntent, error)
	ListUnfinished(ctx context.Context, cutoff time.Time) ([]domain.PurchaseIntent, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries uint) error
}

// TicketView is a ticket joined with its flight.
type TicketView struct {
	TicketUID    uuid.UUID           `json:"ticket_uid"`
	FlightNumber string              `json:"flight_number"`
	FromAirport  string              `json:"from_airport"`
	ToAirport    string              `json:"to_airport"`
	Date         time.Time           `json:"date"`
	Price        int64               `json:"price"`
	Status       domain.TicketStatus `json:"status"`
}

type UserInfo struct {
	Tickets   []TicketView              `json:"tickets"`
	Privilege domain.PrivilegeShortInfo `json:"privilege"`
}

type PrivilegeInfo struct {
	Balance int64                         `json:"balance"`
	Status  domain.PrivilegeStatus        `json:"status"`
	History []domain.PrivilegeTransaction `json:"history"`
}

type GatewayService struct {
	flights            FlightsClient
	tickets            TicketsClient
	privileges         PrivilegesClient
	intents            IntentStore
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	compensationsTopic string
	autoProvision      bool
	log                zerolog.Logger
}

type Option func(*GatewayService)

func WithProducer(producer Producer, eventsTopic string) Option {
	return func(s *GatewayService) {
		s.producer = producer
		s.eventsTopic = eventsTopic
	}
}

func WithNotificationsTopic(topic string) Option {
	return func(s *GatewayService) {
		s.notificationsTopic = topic
	}
}

func WithCompensationsTopic(topic string) Option {
	return func(s *GatewayService) {
		s.compensationsTopic = topic
	}
}

// WithAutoProvision makes a purchase by an unknown user open a BRONZE account
// with zero balance instead of failing validation.
func WithAutoProvision(enabled bool) Option {
	return func(s *GatewayService) {
		s.autoProvision = enabled
	}
}

func NewGatewayService(
	flights FlightsClient,
	tickets TicketsClient,
	privileges PrivilegesClient,
	intents IntentStore,
	log zerolog.Logger,
	opts ...Option,
) *GatewayService {
	s := &GatewayService{
		flights:    flights,
		tickets:    tickets,
		privileges: privileges,
		intents:    intents,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GatewayService) ListFlights(ctx context.Context, page, size int) (*domain.FlightPage, error) {
	page, size = domain.NormalizePage(page, size)
	return s.flights.List(ctx, page, size)
}

func (s *GatewayService) ListTickets(ctx context.Context, username string) ([]TicketView, error) {
	if _, err := s.privileges.GetByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	return s.userTickets(ctx, username)
}

func (s *GatewayService) Me(ctx context.Context, username string) (*UserInfo, error) {
	account, err := s.privileges.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	tickets, err := s.userTickets(ctx, username)
	if err != nil {
		return nil, err
	}
	return &UserInfo{
		Tickets:   tickets,
		Privilege: domain.PrivilegeShortInfo{Balance: account.Balance, Status: account.Status},
	}, nil
}

func (s *GatewayService) GetTicket(ctx context.Context, username string, ticketUID uuid.UUID) (*TicketView, error) {
	ticket, err := s.tickets.GetByUID(ctx, ticketUID)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", ticketUID, err)
	}
	if ticket.Username != username {
		return nil, fmt.Errorf("ticket %s does not belong to %s: %w", ticketUID, username, domain.ErrForbidden)
	}
	flight, err := s.flights.GetByNumber(ctx, ticket.FlightNumber)
	if err != nil {
		return nil, fmt.Errorf("flight %s: %w", ticket.FlightNumber, err)
	}
	view := newTicketView(*ticket, flight)
	return &view, nil
}

func (s *GatewayService) Privilege(ctx context.Context, username string) (*PrivilegeInfo, error) {
	account, err := s.privileges.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	history, err := s.privileges.History(ctx, username)
	if err != nil {
		return nil, err
	}
	return &PrivilegeInfo{Balance: account.Balance, Status: account.Status, History: history}, nil
}

// userTickets joins the user's tickets with their flights, looking up each
// distinct flight number once and concurrently.
func (s *GatewayService) userTickets(ctx context.Context, username string) ([]TicketView, error) {
	tickets, err := s.tickets.ListByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		flights = make(map[string]*domain.Flight)
		seen    = make(map[string]struct{})
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, ticket := range tickets {
		number := ticket.FlightNumber
		if _, ok := seen[number]; ok {
			continue
		}
		seen[number] = struct{}{}
		g.Go(func() error {
			flight, err := s.flights.GetByNumber(gctx, number)
			if errors.Is(err, domain.ErrNotFound) {
				s.log.Warn().Str("flight_number", number).Msg("ticket refers to unknown flight")
				return nil
			}
			if err != nil {
				return fmt.Errorf("flight %s: %w", number, err)
			}
			mu.Lock()
			flights[number] = flight
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	views := make([]TicketView, 0, len(tickets))
	for _, ticket := range tickets {
		views = append(views, newTicketView(ticket, flights[ticket.FlightNumber]))
	}
	return views, nil
}

func newTicketView(ticket domain.Ticket, flight *domain.Flight) TicketView {
	view := TicketView{
		TicketUID:    ticket.TicketUID,
		FlightNumber: ticket.FlightNumber,
		Price:        ticket.Price,
		Status:       ticket.Status,
	}
	if flight != nil {
		view.FromAirport = flight.FromAirport.Label()
		view.ToAirport = flight.ToAirport.Label()
		view.Date = flight.DepartureTime
	}
	return view
}

// Purchase buys a ticket as a saga: the bonus mutation and the ticket record
// are each preceded by registering their compensation, and any failure
// replays the registered compensations in reverse.
func (s *GatewayService) Purchase(ctx context.Context, req domain.PurchaseRequest) (*domain.PurchaseReceipt, error) {
	if err := validatePurchase(req); err != nil {
		return nil, err
	}

	flight, err := s.flights.GetByNumber(ctx, req.FlightNumber)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewValidationError("flight not found", domain.FieldError{Field: "flightNumber", Error: "unknown flight " + req.FlightNumber})
	}
	if err != nil {
		return nil, err
	}

	account, err := s.purchaserAccount(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	intent := &domain.PurchaseIntent{
		TicketUID:       uuid.New(),
		Username:        req.Username,
		FlightNumber:    flight.FlightNumber,
		Price:           flight.Price,
		PaidFromBalance: req.PaidFromBalance,
		IdempotencyKey:  req.IdempotencyKey,
		Status:          domain.IntentPending,
		CreatedAt:       now,
	}
	existing, err := s.intents.Reserve(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("reserve purchase: %w", err)
	}
	if existing != nil {
		return replayPurchase(existing, intent)
	}

	log := s.log.With().Str("ticket_uid", intent.TicketUID.String()).Str("username", req.Username).Logger()
	sg := &saga{log: log}

	receipt, err := s.runPurchase(ctx, sg, intent, flight, account)
	if err != nil {
		log.Warn().Err(err).Msg("purchase failed, compensating")
		s.abort(ctx, sg, intent, err)
		return nil, err
	}

	intent.Status = domain.IntentCompleted
	intent.Receipt = receipt
	if err := s.markCompleted(ctx, intent); err != nil {
		// recovery finds the paid ticket and completes the intent
		log.Error().Err(err).Msg("failed to mark intent completed")
	}
	metrics.Purchases.WithLabelValues("completed").Inc()
	s.publishTicketEvent(ctx, kafka.EventTicketPurchased, intent, receipt, "")

	log.Info().
		Str("flight_number", receipt.FlightNumber).
		Int64("paid_by_money", receipt.PaidByMoney).
		Int64("paid_by_bonuses", receipt.PaidByBonuses).
		Msg("ticket purchased")
	return receipt, nil
}

func (s *GatewayService) markCompleted(ctx context.Context, intent *domain.PurchaseIntent) error {
	return retry.Do(
		func() error { return s.intents.Save(ctx, intent) },
		retry.Context(context.WithoutCancel(ctx)),
		retry.Attempts(completedSaveAttempts),
		retry.Delay(completedSaveDelay),
		retry.LastErrorOnly(true),
	)
}

func (s *GatewayService) runPurchase(
	ctx context.Context,
	sg *saga,
	intent *domain.PurchaseIntent,
	flight *domain.Flight,
	account *domain.PrivilegeAccount,
) (*domain.PurchaseReceipt, error) {
	intent.BonusAttempted = true
	if err := s.intents.Save(ctx, intent); err != nil {
		return nil, fmt.Errorf("save intent: %w", err)
	}
	sg.register(stepRollbackBonus, s.rollbackBonus(intent))

	mutation := clients.MutationRequest{TicketUID: intent.TicketUID, FlightNumber: flight.FlightNumber}
	split := domain.SplitPayment(flight.Price, account.Balance, intent.PaidFromBalance)
	if intent.PaidFromBalance {
		mutation.Amount = flight.Price
		debited, err := s.privileges.DebitUpToAvailable(ctx, account.ID, mutation)
		if err != nil {
			return nil, fmt.Errorf("debit bonuses: %w", err)
		}
		split = domain.PaymentSplit{Money: flight.Price - debited.Amount(), Bonuses: debited.Amount()}
	} else {
		mutation.Amount = split.Accrued
		if _, err := s.privileges.Credit(ctx, account.ID, mutation); err != nil {
			return nil, fmt.Errorf("credit bonuses: %w", err)
		}
	}

	snapshot, err := s.privileges.GetByUsername(ctx, intent.Username)
	if err != nil {
		return nil, fmt.Errorf("read privilege: %w", err)
	}

	intent.TicketAttempted = true
	if err := s.intents.Save(ctx, intent); err != nil {
		return nil, fmt.Errorf("save intent: %w", err)
	}
	sg.register(stepCancelTicket, s.cancelTicket(intent))

	ticket, err := s.tickets.Create(ctx, clients.CreateTicketRequest{
		TicketUID:    intent.TicketUID,
		Username:     intent.Username,
		FlightNumber: flight.FlightNumber,
		Price:        split.Money,
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	return &domain.PurchaseReceipt{
		TicketUID:     ticket.TicketUID,
		FlightNumber:  flight.FlightNumber,
		FromAirport:   flight.FromAirport.Label(),
		ToAirport:     flight.ToAirport.Label(),
		Date:          flight.DepartureTime,
		Price:         flight.Price,
		PaidByMoney:   split.Money,
		PaidByBonuses: split.Bonuses,
		Status:        ticket.Status,
		Privilege:     domain.PrivilegeShortInfo{Balance: snapshot.Balance, Status: snapshot.Status},
	}, nil
}

func validatePurchase(req domain.PurchaseRequest) error {
	var fields []domain.FieldError
	if strings.TrimSpace(req.Username) == "" {
		fields = append(fields, domain.FieldError{Field: "X-User-Name", Error: "is required"})
	}
	if strings.TrimSpace(req.FlightNumber) == "" {
		fields = append(fields, domain.FieldError{Field: "flightNumber", Error: "is required"})
	}
	if req.Price < 0 {
		fields = append(fields, domain.FieldError{Field: "price", Error: "must not be negative"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError("invalid purchase request", fields...)
	}
	return nil
}

func (s *GatewayService) purchaserAccount(ctx context.Context, username string) (*domain.PrivilegeAccount, error) {
	account, err := s.privileges.GetByUsername(ctx, username)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if !s.autoProvision {
		return nil, domain.NewValidationError("user not found", domain.FieldError{Field: "X-User-Name", Error: "no privilege account for " + username})
	}

	account, err = s.privileges.CreateAccount(ctx, username, domain.PrivilegeStatusBronze)
	if errors.Is(err, domain.ErrConflict) {
		// created concurrently
		return s.privileges.GetByUsername(ctx, username)
	}
	if err != nil {
		return nil, fmt.Errorf("provision account: %w", err)
	}
	s.log.Info().Str("username", username).Msg("privilege account provisioned")
	return account, nil
}

// replayPurchase answers a purchase whose idempotency key was already used.
// A key reused for a different flight or payment mode is a conflict.
func replayPurchase(intent, requested *domain.PurchaseIntent) (*domain.PurchaseReceipt, error) {
	if intent.FlightNumber != requested.FlightNumber || intent.PaidFromBalance != requested.PaidFromBalance {
		return nil, fmt.Errorf("%w: idempotency key %q was used for a different purchase", domain.ErrConflict, requested.IdempotencyKey)
	}
	switch intent.Status {
	case domain.IntentCompleted:
		if intent.Receipt != nil {
			return intent.Receipt, nil
		}
		return nil, fmt.Errorf("%w: purchase %s has no receipt", domain.ErrConflict, intent.TicketUID)
	case domain.IntentPending:
		return nil, fmt.Errorf("%w: purchase %s is in progress", domain.ErrConflict, intent.TicketUID)
	default:
		return nil, fmt.Errorf("%w: purchase %s failed: %s", domain.ErrConflict, intent.TicketUID, intent.Error)
	}
}

// Cancel returns a ticket: the bonus mutation is reversed first, then the
// ticket moves to CANCELED.
func (s *GatewayService) Cancel(ctx context.Context, username string, ticketUID uuid.UUID) error {
	ticket, err := s.tickets.GetByUID(ctx, ticketUID)
	if err != nil {
		return fmt.Errorf("ticket %s: %w", ticketUID, err)
	}
	if ticket.Username != username {
		return fmt.Errorf("ticket %s does not belong to %s: %w", ticketUID, username, domain.ErrForbidden)
	}
	if ticket.Status != domain.TicketStatusPaid {
		return fmt.Errorf("ticket %s is %s: %w", ticketUID, ticket.Status, domain.ErrConflict)
	}

	if _, err := s.privileges.Rollback(ctx, username, ticketUID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("rollback bonuses: %w", err)
	}

	canceled, err := s.tickets.Cancel(ctx, ticketUID)
	if err != nil {
		return fmt.Errorf("cancel ticket: %w", err)
	}

	intent := &domain.PurchaseIntent{
		TicketUID:    canceled.TicketUID,
		Username:     canceled.Username,
		FlightNumber: canceled.FlightNumber,
		Price:        canceled.Price,
	}
	s.publishTicketEvent(ctx, kafka.EventTicketCanceled, intent, nil, "")
	s.log.Info().Str("ticket_uid", ticketUID.String()).Str("username", username).Msg("ticket canceled")
	return nil
}

func (s *GatewayService) publishTicketEvent(ctx context.Context, eventType string, intent *domain.PurchaseIntent, receipt *domain.PurchaseReceipt, reason string) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.TicketEvent{
		Type:         eventType,
		TicketUID:    intent.TicketUID.String(),
		Username:     intent.Username,
		FlightNumber: intent.FlightNumber,
		Price:        intent.Price,
		Status:       string(intent.Status),
		Reason:       reason,
		OccurredAt:   time.Now().UTC(),
	}
	if receipt != nil {
		event.PaidByMoney = receipt.PaidByMoney
		event.PaidByBonuses = receipt.PaidByBonuses
		event.Status = string(receipt.Status)
	}
	if eventType == kafka.EventTicketCanceled {
		event.Status = string(domain.TicketStatusCanceled)
	}

	if err := s.producer.Publish(ctx, s.eventsTopic, event.TicketUID, event); err != nil {
		s.log.Error().Err(err).Str("type", eventType).Msg("failed to publish ticket event")
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, event.TicketUID, event); err != nil {
			s.log.Error().Err(err).Str("type", eventType).Msg("failed to publish notification")
		}
	}
}

var _ GatewayUseCase = (*GatewayService)(nil)

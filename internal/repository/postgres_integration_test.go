package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresSuite struct {
	suite.Suite
	ctx       context.Context
	container testcontainers.Container
	pool      *pgxpool.Pool

	flights    FlightRepository
	tickets    TicketRepository
	privileges PrivilegeRepository
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration suite needs docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "program",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "airtickets",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	var err error
	s.container, err = testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err, "failed to start postgres container")

	host, err := s.container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := s.container.MappedPort(s.ctx, "5432/tcp")
	require.NoError(s.T(), err)

	dsn := fmt.Sprintf("host=%s port=%s user=program password=test dbname=airtickets sslmode=disable", host, port.Port())
	s.pool, err = pgxpool.New(s.ctx, dsn)
	require.NoError(s.T(), err)

	require.NoError(s.T(), MigrateFlights(s.ctx, s.pool))
	require.NoError(s.T(), MigrateTickets(s.ctx, s.pool))
	require.NoError(s.T(), MigratePrivileges(s.ctx, s.pool))

	s.flights = NewFlightRepository(s.pool)
	s.tickets = NewTicketRepository(s.pool)
	s.privileges = NewPrivilegeRepository(s.pool)

	s.seedFlights()
}

func (s *PostgresSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresSuite) seedFlights() {
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO airport (id, name, city, country) VALUES
			(1, 'Шереметьево', 'Москва', 'Россия'),
			(2, 'Пулково', 'Санкт-Петербург', 'Россия');
		INSERT INTO flight (flight_number, datetime, from_airport_id, to_airport_id, price) VALUES
			('AFL031', '2021-10-08 20:00:00+03', 2, 1, 1500),
			('AFL032', '2021-10-09 08:00:00+03', 1, 2, 1700),
			('AFL033', '2021-10-10 12:00:00+03', 1, 2, 900);`)
	require.NoError(s.T(), err)
}

func (s *PostgresSuite) newAccount(balance int64) *domain.PrivilegeAccount {
	account := &domain.PrivilegeAccount{
		Username: "user-" + uuid.NewString(),
		Status:   domain.PrivilegeStatusBronze,
		Balance:  balance,
	}
	require.NoError(s.T(), s.privileges.Create(s.ctx, account))
	return account
}

func fixedDiff(diff int64) MutationPlan {
	return func(domain.PrivilegeAccount, []domain.PrivilegeTransaction) (MutationStep, error) {
		return MutationStep{Diff: diff, Operation: domain.OperationFor(diff), Apply: true}, nil
	}
}

func (s *PostgresSuite) TestFlights_ListPaginates() {
	page, total, err := s.flights.List(s.ctx, 2, 0)
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(page, 2)
	s.Equal("AFL031", page[0].FlightNumber)
	s.Equal("Пулково", page[0].FromAirport.Name)

	page, _, err = s.flights.List(s.ctx, 2, 2)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("AFL033", page[0].FlightNumber)
}

func (s *PostgresSuite) TestFlights_GetByNumber() {
	flight, err := s.flights.GetByNumber(s.ctx, "AFL031")
	s.Require().NoError(err)
	s.Equal(int64(1500), flight.Price)
	s.Equal("Россия, Шереметьево", flight.ToAirport.Label())

	_, err = s.flights.GetByNumber(s.ctx, "NOPE")
	s.ErrorIs(err, domain.ErrNotFound)
}

// Airports are optional in the schema, a flight without them still lists.
func (s *PostgresSuite) TestFlights_MissingAirportsStillListed() {
	_, err := s.pool.Exec(s.ctx, `INSERT INTO flight (flight_number, datetime, price) VALUES ('AFL099', '2021-10-11 09:00:00+03', 500)`)
	s.Require().NoError(err)
	defer func() {
		_, err := s.pool.Exec(s.ctx, `DELETE FROM flight WHERE flight_number = 'AFL099'`)
		s.Require().NoError(err)
	}()

	flight, err := s.flights.GetByNumber(s.ctx, "AFL099")
	s.Require().NoError(err)
	s.Equal(int64(500), flight.Price)
	s.Zero(flight.FromAirport.ID)
	s.Zero(flight.ToAirport.ID)

	page, total, err := s.flights.List(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Equal(int64(4), total)
	s.Len(page, 4)
	s.Equal("AFL099", page[3].FlightNumber)
}

func (s *PostgresSuite) TestTickets_CreateDuplicateConflicts() {
	uid := uuid.New()
	ticket := &domain.Ticket{TicketUID: uid, Username: "Test Max", FlightNumber: "AFL031", Price: 1500}
	s.Require().NoError(s.tickets.Create(s.ctx, ticket))
	s.Equal(domain.TicketStatusPaid, ticket.Status)

	dup := &domain.Ticket{TicketUID: uid, Username: "Someone", FlightNumber: "AFL032", Price: 1}
	s.ErrorIs(s.tickets.Create(s.ctx, dup), domain.ErrConflict)

	stored, err := s.tickets.GetByUID(s.ctx, uid)
	s.Require().NoError(err)
	s.Equal("Test Max", stored.Username)
	s.Equal(int64(1500), stored.Price)
}

func (s *PostgresSuite) TestTickets_CancelAndDelete() {
	uid := uuid.New()
	s.Require().NoError(s.tickets.Create(s.ctx, &domain.Ticket{TicketUID: uid, Username: "cancel-user", FlightNumber: "AFL031", Price: 10}))

	canceled, err := s.tickets.Cancel(s.ctx, uid)
	s.Require().NoError(err)
	s.Equal(domain.TicketStatusCanceled, canceled.Status)

	_, err = s.tickets.Cancel(s.ctx, uid)
	s.ErrorIs(err, domain.ErrConflict)

	list, err := s.tickets.ListByUsername(s.ctx, "cancel-user")
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.tickets.Delete(s.ctx, uid))
	s.ErrorIs(s.tickets.Delete(s.ctx, uid), domain.ErrNotFound)
	_, err = s.tickets.Cancel(s.ctx, uuid.New())
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *PostgresSuite) TestPrivileges_MutationsKeepHistoryInSync() {
	account := s.newAccount(0)
	ref := AccountRef{ID: account.ID}

	credit, err := s.privileges.ApplyMutation(s.ctx, ref, uuid.New(), fixedDiff(150))
	s.Require().NoError(err)
	s.True(credit.Applied)
	s.Equal(int64(150), credit.Account.Balance)
	s.Equal(domain.OperationFillIn, credit.Transaction.OperationType)

	debitUID := uuid.New()
	debit, err := s.privileges.ApplyMutation(s.ctx, ref, debitUID, fixedDiff(-50))
	s.Require().NoError(err)
	s.Equal(int64(100), debit.Account.Balance)
	s.Equal(domain.OperationDebit, debit.Transaction.OperationType)

	_, err = s.privileges.ApplyMutation(s.ctx, ref, uuid.New(), fixedDiff(-101))
	s.ErrorIs(err, domain.ErrInsufficientBalance)

	history, err := s.privileges.History(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Len(history, 2)
	s.Equal(debitUID, history[0].TicketUID)

	current, err := s.privileges.GetByUsername(s.ctx, account.Username)
	s.Require().NoError(err)
	s.Equal(current.Balance, domain.SumHistory(history))

	entry, err := s.privileges.HistoryEntry(s.ctx, account.ID, debitUID)
	s.Require().NoError(err)
	s.Equal(int64(-50), entry.BalanceDiff)
}

func (s *PostgresSuite) TestPrivileges_ReplayDoesNotWrite() {
	account := s.newAccount(10)
	uid := uuid.New()
	ref := AccountRef{Username: account.Username}

	_, err := s.privileges.ApplyMutation(s.ctx, ref, uid, fixedDiff(5))
	s.Require().NoError(err)

	replay, err := s.privileges.ApplyMutation(s.ctx, ref, uid, func(_ domain.PrivilegeAccount, history []domain.PrivilegeTransaction) (MutationStep, error) {
		return MutationStep{Operation: domain.OperationFillIn, Apply: len(history) == 0}, nil
	})
	s.Require().NoError(err)
	s.False(replay.Applied)
	s.Equal(int64(15), replay.Account.Balance)
	s.Equal(int64(5), replay.Transaction.BalanceDiff)
}

func (s *PostgresSuite) TestPrivileges_ZeroDebitIsRecordedAsDebit() {
	account := s.newAccount(0)
	uid := uuid.New()

	mutation, err := s.privileges.ApplyMutation(s.ctx, AccountRef{ID: account.ID}, uid,
		func(domain.PrivilegeAccount, []domain.PrivilegeTransaction) (MutationStep, error) {
			return MutationStep{Diff: 0, Operation: domain.OperationDebit, Apply: true}, nil
		})
	s.Require().NoError(err)
	s.True(mutation.Applied)
	s.Equal(domain.OperationDebit, mutation.Transaction.OperationType)

	entry, err := s.privileges.HistoryEntry(s.ctx, account.ID, uid)
	s.Require().NoError(err)
	s.Equal(domain.OperationDebit, entry.OperationType)
	s.Zero(entry.BalanceDiff)
}

func (s *PostgresSuite) TestPrivileges_ConcurrentDebitsDoNotLoseUpdates() {
	account := s.newAccount(1000)
	ref := AccountRef{ID: account.ID}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.privileges.ApplyMutation(s.ctx, ref, uuid.New(), fixedDiff(-10))
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	current, err := s.privileges.GetByUsername(s.ctx, account.Username)
	s.Require().NoError(err)
	s.Equal(int64(800), current.Balance)
}

func (s *PostgresSuite) TestPrivileges_UnknownAccount() {
	_, err := s.privileges.ApplyMutation(s.ctx, AccountRef{ID: 987654}, uuid.New(), fixedDiff(1))
	s.ErrorIs(err, domain.ErrNotFound)

	_, err = s.privileges.GetByUsername(s.ctx, "nobody")
	s.ErrorIs(err, domain.ErrNotFound)

	dup := &domain.PrivilegeAccount{Username: s.newAccount(0).Username, Status: domain.PrivilegeStatusGold}
	s.ErrorIs(s.privileges.Create(s.ctx, dup), domain.ErrConflict)
}

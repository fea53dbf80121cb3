package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const flightsSchema = `
CREATE TABLE IF NOT EXISTS airport (
	id      SERIAL PRIMARY KEY,
	name    VARCHAR(255),
	city    VARCHAR(255),
	country VARCHAR(255)
);

CREATE TABLE IF NOT EXISTS flight (
	id              SERIAL PRIMARY KEY,
	flight_number   VARCHAR(20)              NOT NULL UNIQUE,
	datetime        TIMESTAMP WITH TIME ZONE NOT NULL,
	from_airport_id INT REFERENCES airport (id),
	to_airport_id   INT REFERENCES airport (id),
	price           INT                      NOT NULL CHECK (price >= 0)
);`

const ticketsSchema = `
CREATE TABLE IF NOT EXISTS ticket (
	id            SERIAL PRIMARY KEY,
	ticket_uid    UUID        NOT NULL UNIQUE,
	username      VARCHAR(80) NOT NULL,
	flight_number VARCHAR(20) NOT NULL,
	price         INT         NOT NULL CHECK (price >= 0),
	status        VARCHAR(20) NOT NULL CHECK (status IN ('PAID', 'CANCELED')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS ticket_username_idx ON ticket (username);`

const privilegesSchema = `
CREATE TABLE IF NOT EXISTS privilege (
	id       SERIAL PRIMARY KEY,
	username VARCHAR(80) NOT NULL UNIQUE,
	status   VARCHAR(80) NOT NULL DEFAULT 'BRONZE' CHECK (status IN ('BRONZE', 'SILVER', 'GOLD')),
	balance  INT         NOT NULL DEFAULT 0 CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS privilege_history (
	id             SERIAL PRIMARY KEY,
	privilege_id   INT REFERENCES privilege (id) ON DELETE CASCADE,
	ticket_uid     UUID        NOT NULL,
	datetime       TIMESTAMP   NOT NULL DEFAULT (now() AT TIME ZONE 'utc'),
	balance_diff   INT         NOT NULL,
	operation_type VARCHAR(20) NOT NULL CHECK (operation_type IN ('FILL_IN_BALANCE', 'DEBIT_THE_ACCOUNT'))
);

CREATE INDEX IF NOT EXISTS privilege_history_ticket_idx ON privilege_history (privilege_id, ticket_uid);`

func MigrateFlights(ctx context.Context, db *pgxpool.Pool) error {
	return migrate(ctx, db, "flights", flightsSchema)
}

func MigrateTickets(ctx context.Context, db *pgxpool.Pool) error {
	return migrate(ctx, db, "tickets", ticketsSchema)
}

func MigratePrivileges(ctx context.Context, db *pgxpool.Pool) error {
	return migrate(ctx, db, "privileges", privilegesSchema)
}

func migrate(ctx context.Context, db *pgxpool.Pool, name, schema string) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate %s schema: %w", name, err)
	}
	return nil
}

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// translate maps driver errors onto domain sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		case checkViolation:
			return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.ConstraintName)
		}
	}
	return err
}

package repository

import (
	"context"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context, limit, offset int) ([]domain.Flight, int64, error)
	GetByNumber(ctx context.Context, flightNumber string) (*domain.Flight, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const selectFlight = `SELECT f.id, f.flight_number, f.datetime, f.price,
	COALESCE(fa.id, 0), COALESCE(fa.name, ''), COALESCE(fa.city, ''), COALESCE(fa.country, ''),
	COALESCE(ta.id, 0), COALESCE(ta.name, ''), COALESCE(ta.city, ''), COALESCE(ta.country, '')
FROM flight f
LEFT JOIN airport fa ON fa.id = f.from_airport_id
LEFT JOIN airport ta ON ta.id = f.to_airport_id`

func (r *PGFlightRepository) List(ctx context.Context, limit, offset int) ([]domain.Flight, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM flight`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, selectFlight+` ORDER BY f.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0, limit)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, 0, err
		}
		flights = append(flights, *f)
	}
	return flights, total, rows.Err()
}

func (r *PGFlightRepository) GetByNumber(ctx context.Context, flightNumber string) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, selectFlight+` WHERE f.flight_number=$1`, flightNumber))
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.DepartureTime, &f.Price,
		&f.FromAirport.ID, &f.FromAirport.Name, &f.FromAirport.City, &f.FromAirport.Country,
		&f.ToAirport.ID, &f.ToAirport.Name, &f.ToAirport.City, &f.ToAirport.Country); err != nil {
		return nil, err
	}
	return &f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)

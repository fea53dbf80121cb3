package flights

import (
	"context"
	"fmt"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/Domenick1991/airtickets/internal/repository"
	"github.com/rs/zerolog"
)

type FlightUseCase interface {
	List(ctx context.Context, page, size int) (*domain.FlightPage, error)
	GetByNumber(ctx context.Context, flightNumber string) (*domain.Flight, error)
}

type FlightCache interface {
	GetFlightPage(ctx context.Context, page, size int) (*domain.FlightPage, error)
	SetFlightPage(ctx context.Context, result *domain.FlightPage) error
	GetFlight(ctx context.Context, flightNumber string) (*domain.Flight, error)
	SetFlight(ctx context.Context, flight *domain.Flight) error
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
	log   zerolog.Logger
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache, log zerolog.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, log: log}
}

func (s *FlightService) List(ctx context.Context, page, size int) (*domain.FlightPage, error) {
	page, size = domain.NormalizePage(page, size)

	if s.cache != nil {
		cached, err := s.cache.GetFlightPage(ctx, page, size)
		if err != nil {
			s.log.Warn().Err(err).Msg("flight page cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	items, total, err := s.repo.List(ctx, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}

	result := &domain.FlightPage{Page: page, PageSize: size, TotalElements: total, Items: items}
	if s.cache != nil {
		if err := s.cache.SetFlightPage(ctx, result); err != nil {
			s.log.Warn().Err(err).Msg("flight page cache write failed")
		}
	}
	return result, nil
}

func (s *FlightService) GetByNumber(ctx context.Context, flightNumber string) (*domain.Flight, error) {
	if flightNumber == "" {
		return nil, fmt.Errorf("%w: flight number is required", domain.ErrValidation)
	}

	if s.cache != nil {
		cached, err := s.cache.GetFlight(ctx, flightNumber)
		if err != nil {
			s.log.Warn().Err(err).Str("flight_number", flightNumber).Msg("flight cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	flight, err := s.repo.GetByNumber(ctx, flightNumber)
	if err != nil {
		return nil, fmt.Errorf("flight %s: %w", flightNumber, err)
	}
	if s.cache != nil {
		if err := s.cache.SetFlight(ctx, flight); err != nil {
			s.log.Warn().Err(err).Str("flight_number", flightNumber).Msg("flight cache write failed")
		}
	}
	return flight, nil
}

var _ FlightUseCase = (*FlightService)(nil)

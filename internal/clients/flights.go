package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/rs/zerolog"
)

type FlightsClient struct {
	baseClient
}

func NewFlightsClient(baseURL string, opts Options, log zerolog.Logger) *FlightsClient {
	return &FlightsClient{baseClient: newBaseClient("flights", baseURL, opts, log)}
}

func (c *FlightsClient) List(ctx context.Context, page, size int) (*domain.FlightPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		query.Set("size", strconv.Itoa(size))
	}
	var result domain.FlightPage
	if err := c.do(ctx, http.MethodGet, "/api/v1/flights", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *FlightsClient) GetByNumber(ctx context.Context, flightNumber string) (*domain.Flight, error) {
	var flight domain.Flight
	if err := c.do(ctx, http.MethodGet, "/api/v1/flights/"+url.PathEscape(flightNumber), nil, nil, &flight); err != nil {
		return nil, err
	}
	return &flight, nil
}

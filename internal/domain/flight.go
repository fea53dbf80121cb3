package domain

import (
	"fmt"
	"time"
)

type Airport struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// Label is the human-facing form used in every flight response.
func (a Airport) Label() string {
	return fmt.Sprintf("%s, %s", a.Country, a.Name)
}

type Flight struct {
	ID            int64     `json:"id"`
	FlightNumber  string    `json:"flight_number"`
	DepartureTime time.Time `json:"departure_time"`
	FromAirport   Airport   `json:"from_airport"`
	ToAirport     Airport   `json:"to_airport"`
	Price         int64     `json:"price"`
}

type FlightPage struct {
	Page          int      `json:"page"`
	PageSize      int      `json:"page_size"`
	TotalElements int64    `json:"total_elements"`
	Items         []Flight `json:"items"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizePage clamps page to >= 1 and size to [1, MaxPageSize].
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

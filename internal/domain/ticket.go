package domain

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketStatusPaid     TicketStatus = "PAID"
	TicketStatusCanceled TicketStatus = "CANCELED"
)

func (s TicketStatus) Valid() bool {
	return s == TicketStatusPaid || s == TicketStatusCanceled
}

type Ticket struct {
	ID           int64        `json:"id"`
	TicketUID    uuid.UUID    `json:"ticket_uid"`
	Username     string       `json:"username"`
	FlightNumber string       `json:"flight_number"`
	Price        int64        `json:"price"`
	Status       TicketStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SameOrder reports whether two tickets describe the same purchase.
func (t Ticket) SameOrder(other Ticket) bool {
	return t.TicketUID == other.TicketUID &&
		t.Username == other.Username &&
		t.FlightNumber == other.FlightNumber &&
		t.Price == other.Price
}

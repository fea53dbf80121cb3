package kafka

import "time"

const (
	EventTicketPurchased      = "ticket_purchased"
	EventTicketPurchaseFailed = "ticket_purchase_failed"
	EventTicketCanceled       = "ticket_canceled"
)

type TicketEvent struct {
	Type          string    `json:"type"`
	TicketUID     string    `json:"ticket_uid"`
	Username      string    `json:"username"`
	FlightNumber  string    `json:"flight_number"`
	Price         int64     `json:"price"`
	PaidByMoney   int64     `json:"paid_by_money"`
	PaidByBonuses int64     `json:"paid_by_bonuses"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// CompensationEvent asks the worker to finish compensating a purchase saga.
type CompensationEvent struct {
	TicketUID  string    `json:"ticket_uid"`
	Username   string    `json:"username"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

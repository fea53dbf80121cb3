package domain

import (
	"time"

	"github.com/google/uuid"
)

type PurchaseRequest struct {
	Username        string
	FlightNumber    string
	Price           int64
	PaidFromBalance bool
	IdempotencyKey  string
}

type PrivilegeShortInfo struct {
	Balance int64           `json:"balance"`
	Status  PrivilegeStatus `json:"status"`
}

type PurchaseReceipt struct {
	TicketUID     uuid.UUID          `json:"ticket_uid"`
	FlightNumber  string             `json:"flight_number"`
	FromAirport   string             `json:"from_airport"`
	ToAirport     string             `json:"to_airport"`
	Date          time.Time          `json:"date"`
	Price         int64              `json:"price"`
	PaidByMoney   int64              `json:"paid_by_money"`
	PaidByBonuses int64              `json:"paid_by_bonuses"`
	Status        TicketStatus       `json:"status"`
	Privilege     PrivilegeShortInfo `json:"privilege"`
}

// PaymentSplit is the result of applying bonus rules to a flight price.
type PaymentSplit struct {
	Money   int64
	Bonuses int64
	// Accrued is the cashback credited when paying fully in money.
	Accrued int64
}

const CashbackDivisor = 10

// SplitPayment applies the purchase rules: spend up to the balance when
// paying from balance, otherwise accrue price/10 points.
func SplitPayment(price, balance int64, paidFromBalance bool) PaymentSplit {
	if !paidFromBalance {
		return PaymentSplit{Money: price, Accrued: price / CashbackDivisor}
	}
	bonuses := min(balance, price)
	if bonuses < 0 {
		bonuses = 0
	}
	return PaymentSplit{Money: price - bonuses, Bonuses: bonuses}
}

type IntentStatus string

const (
	IntentPending     IntentStatus = "PENDING"
	IntentCompleted   IntentStatus = "COMPLETED"
	IntentCompensated IntentStatus = "COMPENSATED"
	IntentFailed      IntentStatus = "FAILED"
)

// PurchaseIntent is the durable saga record of one purchase attempt.
type PurchaseIntent struct {
	TicketUID       uuid.UUID        `json:"ticket_uid"`
	Username        string           `json:"username"`
	FlightNumber    string           `json:"flight_number"`
	Price           int64            `json:"price"`
	PaidFromBalance bool             `json:"paid_from_balance"`
	IdempotencyKey  string           `json:"idempotency_key,omitempty"`
	Status          IntentStatus     `json:"status"`
	BonusAttempted  bool             `json:"bonus_attempted"`
	TicketAttempted bool             `json:"ticket_attempted"`
	Receipt         *PurchaseReceipt `json:"receipt,omitempty"`
	Error           string           `json:"error,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (i PurchaseIntent) Finished() bool {
	return i.Status == IntentCompleted || i.Status == IntentCompensated
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type PrivilegeStatus string

const (
	PrivilegeStatusBronze PrivilegeStatus = "BRONZE"
	PrivilegeStatusSilver PrivilegeStatus = "SILVER"
	PrivilegeStatusGold   PrivilegeStatus = "GOLD"
)

func (s PrivilegeStatus) Valid() bool {
	switch s {
	case PrivilegeStatusBronze, PrivilegeStatusSilver, PrivilegeStatusGold:
		return true
	}
	return false
}

type OperationType string

const (
	OperationFillIn OperationType = "FILL_IN_BALANCE"
	OperationDebit  OperationType = "DEBIT_THE_ACCOUNT"
)

func (o OperationType) Valid() bool {
	return o == OperationFillIn || o == OperationDebit
}

// OperationFor returns the operation type of a non-zero rollback diff.
// Purchase mutations name their operation explicitly.
func OperationFor(diff int64) OperationType {
	if diff < 0 {
		return OperationDebit
	}
	return OperationFillIn
}

type PrivilegeAccount struct {
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	Status   PrivilegeStatus `json:"status"`
	Balance  int64           `json:"balance"`
}

type PrivilegeTransaction struct {
	ID            int64         `json:"id"`
	PrivilegeID   int64         `json:"privilege_id"`
	TicketUID     uuid.UUID     `json:"ticket_uid"`
	Datetime      time.Time     `json:"datetime"`
	BalanceDiff   int64         `json:"balance_diff"`
	OperationType OperationType `json:"operation_type"`
}

// BalanceMutation is the outcome of a debit, credit or rollback.
type BalanceMutation struct {
	Account     PrivilegeAccount     `json:"account"`
	Transaction PrivilegeTransaction `json:"transaction"`
	// Applied is false when the call replayed an already recorded mutation.
	Applied bool `json:"applied"`
}

// Amount is the absolute value moved by the mutation.
func (m BalanceMutation) Amount() int64 {
	if m.Transaction.BalanceDiff < 0 {
		return -m.Transaction.BalanceDiff
	}
	return m.Transaction.BalanceDiff
}

// SumHistory folds a transaction history into the balance it implies.
func SumHistory(history []PrivilegeTransaction) int64 {
	var total int64
	for _, tx := range history {
		total += tx.BalanceDiff
	}
	return total
}

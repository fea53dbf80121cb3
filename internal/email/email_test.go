package email

import (
	"context"
	"testing"

	"github.com/Domenick1991/airtickets/internal/kafka"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	subject, body, ok := Compose(kafka.TicketEvent{
		Type:          kafka.EventTicketPurchased,
		TicketUID:     "049161bb-badd-4fa8-9d90-87c9a82b0668",
		FlightNumber:  "AFL031",
		PaidByMoney:   1450,
		PaidByBonuses: 50,
	})

	assert.True(t, ok)
	assert.Equal(t, "Ticket AFL031", subject)
	assert.Contains(t, body, "1450 in money, 50 in bonuses")
}

func TestCompose_Unknown(t *testing.T) {
	_, _, ok := Compose(kafka.TicketEvent{Type: "something_else"})
	assert.False(t, ok)
}

func TestSender_Send(t *testing.T) {
	sender := NewSender(zerolog.Nop())
	assert.NoError(t, sender.Send(context.Background(), kafka.TicketEvent{Type: kafka.EventTicketCanceled, FlightNumber: "AFL031"}))
}

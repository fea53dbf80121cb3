package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/airtickets/internal/kafka"
	"github.com/rs/zerolog"
)

type Sender struct {
	log zerolog.Logger
}

func NewSender(log zerolog.Logger) *Sender {
	return &Sender{log: log.With().Str("component", "email").Logger()}
}

// Compose renders the notification for a ticket event. ok is false for events
// the user is not notified about.
func Compose(event kafka.TicketEvent) (subject, body string, ok bool) {
	switch event.Type {
	case kafka.EventTicketPurchased:
		return "Ticket " + event.FlightNumber,
			fmt.Sprintf("Ticket %s for flight %s is paid: %d in money, %d in bonuses.",
				event.TicketUID, event.FlightNumber, event.PaidByMoney, event.PaidByBonuses), true
	case kafka.EventTicketCanceled:
		return "Ticket " + event.FlightNumber + " canceled",
			fmt.Sprintf("Ticket %s for flight %s was canceled and bonuses were returned.",
				event.TicketUID, event.FlightNumber), true
	case kafka.EventTicketPurchaseFailed:
		return "Purchase failed",
			fmt.Sprintf("Purchase of flight %s could not be completed, nothing was charged.", event.FlightNumber), true
	}
	return "", "", false
}

func (s *Sender) Send(ctx context.Context, event kafka.TicketEvent) error {
	subject, body, ok := Compose(event)
	if !ok {
		s.log.Debug().Str("type", event.Type).Msg("event has no notification")
		return nil
	}
	s.log.Info().
		Str("to", event.Username).
		Str("subject", subject).
		Str("body", body).
		Msg("send email")
	return nil
}

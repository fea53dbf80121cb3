package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/Domenick1991/airtickets/internal/kafka"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkaGo "github.com/segmentio/kafka-go"
)

type Notifier interface {
	Send(ctx context.Context, event kafka.TicketEvent) error
}

type Compensator interface {
	Compensate(ctx context.Context, ticketUID uuid.UUID) error
	RecoverStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type handlers struct {
	notifier    Notifier
	compensator Compensator
	log         zerolog.Logger
}

// notification forwards ticket events to the notifier. Undecodable messages
// are skipped so they do not block the partition.
func (h *handlers) notification(ctx context.Context, msg kafkaGo.Message) error {
	var event kafka.TicketEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.log.Error().Err(err).Int64("offset", msg.Offset).Msg("decode ticket event")
		return nil
	}
	return h.notifier.Send(ctx, event)
}

// compensation finishes a purchase rollback the gateway could not complete.
// Failures are logged and left to the stale intent sweep.
func (h *handlers) compensation(ctx context.Context, msg kafkaGo.Message) error {
	var event kafka.CompensationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.log.Error().Err(err).Int64("offset", msg.Offset).Msg("decode compensation event")
		return nil
	}
	uid, err := uuid.Parse(event.TicketUID)
	if err != nil {
		h.log.Error().Err(err).Str("ticket_uid", event.TicketUID).Msg("invalid ticket uid in compensation event")
		return nil
	}

	err = h.compensator.Compensate(ctx, uid)
	switch {
	case err == nil:
		h.log.Info().Str("ticket_uid", event.TicketUID).Msg("compensation completed")
	case errors.Is(err, domain.ErrNotFound):
		h.log.Warn().Str("ticket_uid", event.TicketUID).Msg("intent expired before compensation")
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		h.log.Error().Err(err).Str("ticket_uid", event.TicketUID).Msg("compensation failed, leaving it to the sweep")
	}
	return nil
}

func (h *handlers) sweep(ctx context.Context, olderThan time.Duration) {
	recovered, err := h.compensator.RecoverStale(ctx, olderThan)
	if err != nil {
		h.log.Error().Err(err).Int("recovered", recovered).Msg("stale intent sweep")
		return
	}
	if recovered > 0 {
		h.log.Info().Int("recovered", recovered).Msg("stale intents compensated")
	}
}

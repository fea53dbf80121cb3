package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/Domenick1991/airtickets/internal/kafka"
	"github.com/Domenick1991/airtickets/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type compensation struct {
	step string
	run  func(ctx context.Context) error
}

// saga collects compensating actions in the order their steps started.
// compensate replays them newest first.
type saga struct {
	steps []compensation
	log   zerolog.Logger
}

func (s *saga) register(step string, run func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{step: step, run: run})
}

// compensate runs every registered action even when one of them fails.
// An action whose target is already gone counts as done.
func (s *saga) compensate(ctx context.Context) error {
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		err := c.run(ctx)
		switch {
		case err == nil:
			metrics.Compensations.WithLabelValues(c.step, "ok").Inc()
		case errors.Is(err, domain.ErrNotFound):
			metrics.Compensations.WithLabelValues(c.step, "noop").Inc()
		default:
			metrics.Compensations.WithLabelValues(c.step, "failed").Inc()
			s.log.Error().Err(err).Str("step", c.step).Msg("compensation failed")
			errs = append(errs, fmt.Errorf("%s: %w", c.step, err))
		}
	}
	return errors.Join(errs...)
}

const (
	stepRollbackBonus = "rollback_bonus"
	stepCancelTicket  = "cancel_ticket"

	compensationPublishAttempts = 3

	completedSaveAttempts = 3
	completedSaveDelay    = 50 * time.Millisecond
)

func (s *GatewayService) rollbackBonus(intent *domain.PurchaseIntent) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.privileges.Rollback(ctx, intent.Username, intent.TicketUID)
		return err
	}
}

func (s *GatewayService) cancelTicket(intent *domain.PurchaseIntent) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.tickets.Cancel(ctx, intent.TicketUID)
		if errors.Is(err, domain.ErrConflict) {
			// already canceled
			return nil
		}
		return err
	}
}

// sagaFor rebuilds the compensations of a recorded intent from the steps it
// had started.
func (s *GatewayService) sagaFor(intent *domain.PurchaseIntent) *saga {
	sg := &saga{log: s.log.With().Str("ticket_uid", intent.TicketUID.String()).Logger()}
	if intent.BonusAttempted {
		sg.register(stepRollbackBonus, s.rollbackBonus(intent))
	}
	if intent.TicketAttempted {
		sg.register(stepCancelTicket, s.cancelTicket(intent))
	}
	return sg
}

// abort undoes a failed purchase. When a compensation fails the intent is
// left FAILED and handed to the worker through the compensations topic.
func (s *GatewayService) abort(ctx context.Context, sg *saga, intent *domain.PurchaseIntent, cause error) {
	ctx = context.WithoutCancel(ctx)

	intent.Error = cause.Error()
	if err := sg.compensate(ctx); err != nil {
		intent.Status = domain.IntentFailed
		metrics.Purchases.WithLabelValues("failed").Inc()
		s.requestCompensation(ctx, intent, err)
	} else {
		intent.Status = domain.IntentCompensated
		metrics.Purchases.WithLabelValues("compensated").Inc()
	}

	if err := s.intents.Save(ctx, intent); err != nil {
		s.log.Error().Err(err).Str("ticket_uid", intent.TicketUID.String()).Msg("failed to save aborted intent")
	}
	s.publishTicketEvent(ctx, kafka.EventTicketPurchaseFailed, intent, nil, cause.Error())
}

func (s *GatewayService) requestCompensation(ctx context.Context, intent *domain.PurchaseIntent, cause error) {
	if s.producer == nil || s.compensationsTopic == "" {
		return
	}
	event := kafka.CompensationEvent{
		TicketUID:  intent.TicketUID.String(),
		Username:   intent.Username,
		Reason:     cause.Error(),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.producer.PublishWithRetry(ctx, s.compensationsTopic, event.TicketUID, event, compensationPublishAttempts); err != nil {
		s.log.Error().Err(err).Str("ticket_uid", event.TicketUID).Msg("failed to publish compensation request")
	}
}

// Compensate finishes rolling back a recorded purchase. Finished intents are
// left alone, so redelivered requests are harmless.
func (s *GatewayService) Compensate(ctx context.Context, ticketUID uuid.UUID) error {
	intent, err := s.intents.Get(ctx, ticketUID)
	if err != nil {
		return err
	}
	_, err = s.compensateIntent(ctx, intent)
	return err
}

// compensateIntent reports whether the intent was rolled back. A PENDING
// intent whose ticket got paid is a purchase that only missed its final
// save, so it is completed instead.
func (s *GatewayService) compensateIntent(ctx context.Context, intent *domain.PurchaseIntent) (bool, error) {
	if intent.Finished() {
		return false, nil
	}

	if intent.Status == domain.IntentPending && intent.TicketAttempted {
		completed, err := s.completeIfPaid(ctx, intent)
		if err != nil || completed {
			return false, err
		}
	}

	if err := s.sagaFor(intent).compensate(ctx); err != nil {
		intent.Status = domain.IntentFailed
		intent.Error = err.Error()
		if saveErr := s.intents.Save(ctx, intent); saveErr != nil {
			s.log.Error().Err(saveErr).Str("ticket_uid", intent.TicketUID.String()).Msg("failed to save intent")
		}
		return false, err
	}

	wasPending := intent.Status == domain.IntentPending
	intent.Status = domain.IntentCompensated
	if intent.Error == "" {
		intent.Error = "abandoned purchase"
	}
	if err := s.intents.Save(ctx, intent); err != nil {
		return false, err
	}
	metrics.Purchases.WithLabelValues("recovered").Inc()
	if wasPending {
		s.publishTicketEvent(ctx, kafka.EventTicketPurchaseFailed, intent, nil, intent.Error)
	}
	s.log.Info().Str("ticket_uid", intent.TicketUID.String()).Msg("purchase compensated")
	return true, nil
}

func (s *GatewayService) completeIfPaid(ctx context.Context, intent *domain.PurchaseIntent) (bool, error) {
	ticket, err := s.tickets.GetByUID(ctx, intent.TicketUID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check ticket: %w", err)
	}
	if ticket.Status != domain.TicketStatusPaid || ticket.Username != intent.Username {
		return false, nil
	}

	intent.Status = domain.IntentCompleted
	intent.Error = ""
	if intent.Receipt == nil {
		intent.Receipt = &domain.PurchaseReceipt{
			TicketUID:     ticket.TicketUID,
			FlightNumber:  ticket.FlightNumber,
			Price:         intent.Price,
			PaidByMoney:   ticket.Price,
			PaidByBonuses: max(intent.Price-ticket.Price, 0),
			Status:        ticket.Status,
		}
	}
	if err := s.intents.Save(ctx, intent); err != nil {
		return false, err
	}
	metrics.Purchases.WithLabelValues("completed").Inc()
	s.log.Info().Str("ticket_uid", intent.TicketUID.String()).Msg("stale purchase had a paid ticket, marked completed")
	return true, nil
}

// RecoverStale settles PENDING and FAILED intents created before olderThan
// ago. It returns how many were compensated.
func (s *GatewayService) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	intents, err := s.intents.ListUnfinished(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	recovered := 0
	var errs []error
	for i := range intents {
		compensated, err := s.compensateIntent(ctx, &intents[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("intent %s: %w", intents[i].TicketUID, err))
			continue
		}
		if compensated {
			recovered++
		}
	}
	return recovered, errors.Join(errs...)
}

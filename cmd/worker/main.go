package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airtickets/config"
	"github.com/Domenick1991/airtickets/internal/bootstrap"
	"github.com/Domenick1991/airtickets/internal/cache"
	"github.com/Domenick1991/airtickets/internal/clients"
	"github.com/Domenick1991/airtickets/internal/email"
	"github.com/Domenick1991/airtickets/internal/kafka"
	"github.com/Domenick1991/airtickets/internal/logger"
	"github.com/Domenick1991/airtickets/internal/metrics"
	"github.com/Domenick1991/airtickets/internal/service/gateway"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load("worker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(cfg.Log, "worker")
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := cache.NewClient(cfg.Redis)
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logg)
	defer producer.Close()

	opts := clients.OptionsFrom(cfg.Gateway)
	gatewayService := gateway.NewGatewayService(
		clients.NewFlightsClient(cfg.Gateway.FlightsURL, opts, logg),
		clients.NewTicketsClient(cfg.Gateway.TicketsURL, opts, logg),
		clients.NewPrivilegesClient(cfg.Gateway.PrivilegesURL, opts, logg),
		cache.NewIntentStore(redisClient, cfg.Gateway.IntentTTL),
		logg,
		gateway.WithProducer(producer, cfg.Kafka.TicketEventsTopic),
		gateway.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	h := &handlers{
		notifier:    email.NewSender(logg),
		compensator: gatewayService,
		log:         logg,
	}

	notifications := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupFor(cfg.Kafka.NotificationsTopic), cfg.Kafka.NotificationsTopic, logg)
	defer notifications.Close()
	compensations := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupFor(cfg.Kafka.CompensationsTopic), cfg.Kafka.CompensationsTopic, logg)
	defer compensations.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCanceled(notifications.Consume(gctx, h.notification))
	})
	g.Go(func() error {
		return ignoreCanceled(compensations.Consume(gctx, h.compensation))
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Worker.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.sweep(gctx, cfg.Worker.StaleIntentAfter)
			case <-gctx.Done():
				return nil
			}
		}
	})
	g.Go(func() error {
		return bootstrap.Run(gctx, cfg, logg, bootstrap.Options{
			Service: "worker",
			Checks:  []bootstrap.HealthCheck{func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		})
	})

	if err := g.Wait(); err != nil {
		logg.Fatal().Err(err).Msg("worker stopped")
	}
	logg.Info().Msg("worker stopped")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

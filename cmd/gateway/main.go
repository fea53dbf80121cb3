package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/airtickets/api"
	"github.com/Domenick1991/airtickets/config"
	"github.com/Domenick1991/airtickets/internal/bootstrap"
	"github.com/Domenick1991/airtickets/internal/cache"
	"github.com/Domenick1991/airtickets/internal/clients"
	"github.com/Domenick1991/airtickets/internal/kafka"
	"github.com/Domenick1991/airtickets/internal/logger"
	"github.com/Domenick1991/airtickets/internal/metrics"
	"github.com/Domenick1991/airtickets/internal/service/gateway"
)

func main() {
	cfg, err := config.Load("gateway")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(cfg.Log, "gateway")
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := cache.NewClient(cfg.Redis)
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logg)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		logg.Warn().Err(err).Msg("kafka is not reachable, ticket events may be lost")
	}

	opts := clients.OptionsFrom(cfg.Gateway)
	gatewayService := gateway.NewGatewayService(
		clients.NewFlightsClient(cfg.Gateway.FlightsURL, opts, logg),
		clients.NewTicketsClient(cfg.Gateway.TicketsURL, opts, logg),
		clients.NewPrivilegesClient(cfg.Gateway.PrivilegesURL, opts, logg),
		cache.NewIntentStore(redisClient, cfg.Gateway.IntentTTL),
		logg,
		gateway.WithProducer(producer, cfg.Kafka.TicketEventsTopic),
		gateway.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		gateway.WithCompensationsTopic(cfg.Kafka.CompensationsTopic),
		gateway.WithAutoProvision(cfg.Gateway.AutoProvisionAccounts),
	)

	if err := bootstrap.Run(ctx, cfg, logg, bootstrap.Options{
		Service:     "gateway",
		Routes:      []bootstrap.Route{{Prefix: "/api/v1", Handler: api.NewGatewayHandler(gatewayService)}},
		Checks:      []bootstrap.HealthCheck{func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		SwaggerSpec: "gateway.swagger.json",
	}); err != nil {
		logg.Fatal().Err(err).Msg("server error")
	}
}

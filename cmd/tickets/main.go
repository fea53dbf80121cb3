package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/airtickets/api"
	"github.com/Domenick1991/airtickets/config"
	"github.com/Domenick1991/airtickets/internal/bootstrap"
	"github.com/Domenick1991/airtickets/internal/logger"
	"github.com/Domenick1991/airtickets/internal/metrics"
	"github.com/Domenick1991/airtickets/internal/repository"
	"github.com/Domenick1991/airtickets/internal/service/tickets"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load("tickets")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(cfg.Log, "tickets")
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logg.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := repository.MigrateTickets(ctx, pool); err != nil {
		logg.Fatal().Err(err).Msg("migrate tickets schema")
	}

	ticketService := tickets.NewTicketService(repository.NewTicketRepository(pool), logg)

	if err := bootstrap.Run(ctx, cfg, logg, bootstrap.Options{
		Service: "tickets",
		Routes:  []bootstrap.Route{{Prefix: "/api/v1/tickets", Handler: api.NewTicketHandler(ticketService)}},
		Checks:  []bootstrap.HealthCheck{pool.Ping},
	}); err != nil {
		logg.Fatal().Err(err).Msg("server error")
	}
}

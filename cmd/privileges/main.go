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
	"github.com/Domenick1991/airtickets/internal/service/privileges"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load("privileges")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(cfg.Log, "privileges")
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logg.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := repository.MigratePrivileges(ctx, pool); err != nil {
		logg.Fatal().Err(err).Msg("migrate privileges schema")
	}

	privilegeService := privileges.NewPrivilegeService(repository.NewPrivilegeRepository(pool), logg)

	if err := bootstrap.Run(ctx, cfg, logg, bootstrap.Options{
		Service: "privileges",
		Routes:  []bootstrap.Route{{Prefix: "/api/v1", Handler: api.NewPrivilegeHandler(privilegeService)}},
		Checks:  []bootstrap.HealthCheck{pool.Ping},
	}); err != nil {
		logg.Fatal().Err(err).Msg("server error")
	}
}

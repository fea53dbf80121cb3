package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/airtickets/api"
	"github.com/Domenick1991/airtickets/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Registrar interface {
	Register(router *gin.RouterGroup)
}

// Route mounts a handler under a path prefix.
type Route struct {
	Prefix  string
	Handler Registrar
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	Service string
	Routes  []Route
	Checks  []HealthCheck
	// SwaggerSpec is the file under http.swagger_dir served at /docs.
	SwaggerSpec string
}

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	service    string
	log        zerolog.Logger
}

// Run starts the gRPC health listener and the HTTP server and blocks until ctx
// is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) error {
	s := newServers(cfg, log, opts)

	var lis net.Listener
	if cfg.GRPC.Address != "" {
		var err error
		lis, err = net.Listen("tcp", cfg.GRPC.Address)
		if err != nil {
			return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if lis != nil {
		g.Go(func() error {
			s.log.Info().Str("address", cfg.GRPC.Address).Msg("grpc server started")
			if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.log.Info().Str("address", cfg.HTTP.Address).Msg("http server started")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info().Msg("shutting down")
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newServers(cfg *config.Config, log zerolog.Logger, opts Options) *Servers {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus(opts.Service, healthpb.HealthCheckResponse_SERVING)

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           newRouter(cfg, log, opts),
			ReadHeaderTimeout: 10 * time.Second,
		},
		service: opts.Service,
		log:     log,
	}
}

func newRouter(cfg *config.Config, log zerolog.Logger, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(log), api.Metrics())

	router.GET("/manage/health", healthHandler(opts.Checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.HTTP.SwaggerDir != "" && opts.SwaggerSpec != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/"+opts.SwaggerSpec))))
	}

	for _, route := range opts.Routes {
		route.Handler.Register(router.Group(route.Prefix))
	}
	return router
}

func healthHandler(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	}
}

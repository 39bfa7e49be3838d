package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	catalogapp "github.com/dmehra2102/checkout-service/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/checkout-service/internal/catalog/infrastructure/http"
	catalogpg "github.com/dmehra2102/checkout-service/internal/catalog/infrastructure/postgres"
	"github.com/dmehra2102/checkout-service/internal/config"
	"github.com/dmehra2102/checkout-service/internal/order/application"
	orderhttp "github.com/dmehra2102/checkout-service/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/checkout-service/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/checkout-service/internal/order/infrastructure/postgres"
	orderstripe "github.com/dmehra2102/checkout-service/internal/order/infrastructure/stripe"
	"github.com/dmehra2102/checkout-service/internal/server"
	storage "github.com/dmehra2102/checkout-service/internal/storage/postgres"
	"github.com/dmehra2102/checkout-service/pkg/idempotency"
	"github.com/dmehra2102/checkout-service/pkg/logging"
	"github.com/dmehra2102/checkout-service/pkg/metrics"
	"github.com/dmehra2102/checkout-service/pkg/outbox"
	"github.com/dmehra2102/checkout-service/pkg/shutdown"
	"github.com/dmehra2102/checkout-service/pkg/tracing"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 30 * time.Second
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	log := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTelEndpoint, log)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		return fmt.Errorf("pg connect: %w", err)
	}
	defer pool.Close()
	if migrate {
		if err := storage.Migrate(ctx, log, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Redis for checkout idempotency keys
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL, idempotency.WithPendingLease(writeTimeout))

	// Kafka producer + outbox relay
	writer := orderkafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()
	dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
	relay := outbox.NewRelay(log, orderpg.NewOutboxStore(log, pool), dispatch, cfg.ServiceName+"-relay")

	// Catalog
	catalogSvc := catalogapp.NewService(catalogpg.NewRepository(log, pool))
	catalogHandler := cataloghttp.NewHandler(log, catalogSvc, cfg.Stripe.PublishableKey)

	// Orders and payments
	gateway := orderstripe.NewGateway(log, &cfg.Stripe)
	orderSvc := application.NewService(log, &cfg.Stripe, orderpg.NewRepository(log, pool), catalogSvc, gateway)
	orderHandler := orderhttp.NewHandler(log, orderSvc, cfg.PublicBaseURL,
		orderhttp.WithCheckoutMiddleware(idempotency.Middleware(log, idem)))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	router := server.NewRouter(metrics.NewServerMetrics(reg, "http"), reg, catalogHandler, orderHandler)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	err = shutdown.Serve(ctx, log, srv, cfg.ShutdownTimeout)
	cancel()
	log.Info("checkout-service shutdown complete")
	return err
}

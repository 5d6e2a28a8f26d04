// Command server runs the permissioned asset ledger: restriction-gated
// transfers, role administration, snapshot history, and dividend
// distribution, exposed over HTTP. Business logic lives in the internal
// service packages; main only wires dependencies and owns the lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"tessera/internal/dividend"
	assetmemory "tessera/internal/dividend/asset/memory"
	dividendhandler "tessera/internal/dividend/handler"
	dividendmetrics "tessera/internal/dividend/metrics"
	"tessera/internal/events"
	eventshandler "tessera/internal/events/handler"
	"tessera/internal/events/kafka"
	eventsmemory "tessera/internal/events/store/memory"
	eventspostgres "tessera/internal/events/store/postgres"
	httpapi "tessera/internal/http"
	"tessera/internal/ledger"
	ledgerhandler "tessera/internal/ledger/handler"
	ledgermetrics "tessera/internal/ledger/metrics"
	"tessera/internal/permission"
	permissionhandler "tessera/internal/permission/handler"
	"tessera/internal/platform/config"
	"tessera/internal/platform/httpserver"
	"tessera/internal/platform/logger"
	"tessera/internal/platform/middleware"
	platformredis "tessera/internal/platform/redis"
	"tessera/internal/query"
	"tessera/internal/restriction"
	restrictionhandler "tessera/internal/restriction/handler"
	"tessera/internal/roles"
	roleshandler "tessera/internal/roles/handler"
	"tessera/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if cfg.Ledger.ContractAdmin == "" || cfg.Ledger.ReserveAdmin == "" {
		log.Error("TESSERA_CONTRACT_ADMIN and TESSERA_RESERVE_ADMIN are required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event store: Postgres outbox when configured, memory otherwise.
	var (
		store  events.Store
		outbox events.Outbox
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if _, err := db.ExecContext(ctx, eventspostgres.Schema); err != nil {
			log.Error("apply outbox schema", "error", err)
			os.Exit(1)
		}
		pg := eventspostgres.New(db)
		store, outbox = pg, pg
	} else {
		store = eventsmemory.NewInMemoryStore()
	}
	publisher := events.NewPublisher(store, events.WithLogger(log))

	registry, err := roles.NewRegistry(
		domain.Address(cfg.Ledger.ContractAdmin),
		domain.Address(cfg.Ledger.ReserveAdmin),
		publisher,
	)
	if err != nil {
		log.Error("build role registry", "error", err)
		os.Exit(1)
	}

	permStore := permission.NewInMemoryStore()
	permService := permission.NewService(permStore, registry, publisher)

	holder, err := restriction.NewHolder(restriction.NewDefaultPolicy(), registry, publisher)
	if err != nil {
		log.Error("build transfer policy", "error", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.Config{
		Address:        domain.Address(cfg.Ledger.Address),
		Symbol:         cfg.Ledger.Symbol,
		Name:           cfg.Ledger.Name,
		Decimals:       cfg.Ledger.Decimals,
		ReserveAdmin:   domain.Address(cfg.Ledger.ReserveAdmin),
		InitialSupply:  cfg.Ledger.InitialSupply,
		MaxTotalSupply: cfg.Ledger.MaxTotalSupply,
		Policy:         holder,
		Registry:       registry,
		Permissions:    permStore,
		Publisher:      publisher,
		Metrics:        ledgermetrics.New(),
	})
	if err != nil {
		log.Error("build ledger", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	queryService := query.NewService(ledgerService, rawRedis(redisClient), log)

	resolver := assetmemory.NewResolver()
	dividendService, err := dividend.NewService(dividend.Config{
		Account:   domain.Address(cfg.Ledger.Address),
		Ledger:    ledgerService,
		Registry:  registry,
		Resolver:  resolver,
		Publisher: publisher,
		Metrics:   dividendmetrics.New(),
	})
	if err != nil {
		log.Error("build dividend service", "error", err)
		os.Exit(1)
	}

	validator := middleware.NewValidator(cfg.JWTSigningKey)
	router := httpapi.NewRouter(validator, log,
		ledgerhandler.New(ledgerService, queryService, log).WithAdminCounter(registry),
		permissionhandler.New(permService, log),
		roleshandler.New(registry, log),
		dividendhandler.New(dividendService, log),
		restrictionhandler.New(holder, map[string]restriction.Policy{
			"default": restriction.NewDefaultPolicy(),
		}, log),
		eventshandler.New(store, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr, "symbol", cfg.Ledger.Symbol)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.New(ctx, kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		worker := events.NewWorker(outbox, sink, log)
		g.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Info("shutdown complete")
}

// rawRedis unwraps the platform client; a nil wrapper means caching is off.
func rawRedis(c *platformredis.Client) *redis.Client {
	if c == nil {
		return nil
	}
	return c.Client
}

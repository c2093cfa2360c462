package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"beacon/internal/cases"
	caseshandler "beacon/internal/cases/handler"
	"beacon/internal/crypto/envelope"
	"beacon/internal/jwttoken"
	"beacon/internal/location"
	"beacon/internal/notify"
	"beacon/internal/notify/kafka"
	"beacon/internal/notify/outbox"
	"beacon/internal/notify/worker"
	"beacon/internal/platform/config"
	"beacon/internal/platform/httpserver"
	"beacon/internal/platform/logger"
	platformredis "beacon/internal/platform/redis"
	"beacon/internal/ratelimit"
	"beacon/internal/responders"
	"beacon/internal/timeline"
	"beacon/internal/verification"
	"beacon/internal/verification/noncestore"
)

// main wires dependencies and keeps the process lifecycle small. Business
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(os.Getenv("BEACON_LOG_LEVEL"))

	if err := run(cfg, log); err != nil {
		log.Error("beacon exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores fall back to memory when Postgres is not configured, which
	// keeps local development and demos dependency-free.
	var (
		caseStore         cases.Store
		verificationStore cases.VerificationStore
		timelineStore     timeline.Store
		responderStore    responders.Store
		locator           location.Locator
		outboxStore       outbox.Store
	)
	if db != nil {
		caseStore = cases.NewPostgres(db)
		verificationStore = cases.NewPostgresVerifications(db)
		timelineStore = timeline.NewPostgres(db)
		pgResponders := responders.NewPostgres(db)
		responderStore = pgResponders
		locator = location.NewPostgresLocator(db, pgResponders)
		outboxStore = outbox.NewPostgres(db)
	} else {
		memResponders := responders.NewInMemoryStore()
		caseStore = cases.NewInMemoryStore()
		verificationStore = cases.NewInMemoryVerificationStore()
		timelineStore = timeline.NewInMemoryStore()
		responderStore = memResponders
		locator = location.NewMemoryLocator(memResponders)
		outboxStore = outbox.NewInMemoryStore()
	}

	var nonces verification.NonceStore
	if redisClient != nil {
		nonces = noncestore.NewRedis(redisClient.Client)
	} else {
		nonces = noncestore.NewMemory()
	}

	protocol, err := verification.New([]byte(cfg.VerificationHMACKey), nonces)
	if err != nil {
		return err
	}

	opts := []cases.Option{
		cases.WithAutoAssign(cfg.AutoAssign),
		cases.WithLocatorTimeout(cfg.LocatorTimeout),
	}
	if db != nil {
		opts = append(opts, cases.WithDB(db))
	}
	kek, err := cfg.DecodeKEK()
	if err != nil {
		return err
	}
	if kek != nil {
		enc, err := envelope.NewEncryptor(kek)
		if err != nil {
			return err
		}
		opts = append(opts, cases.WithSealer(enc))
	}

	service := cases.NewService(
		caseStore,
		verificationStore,
		responderStore,
		timeline.NewPublisher(timelineStore),
		locator,
		notify.NewOutboxDispatcher(outboxStore),
		protocol,
		log,
		opts...,
	)

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "beacon", "beacon-api")
	limiter := ratelimit.NewMiddleware(
		ratelimit.New(cfg.CreateRateLimit, cfg.CreateRateWindow),
		log,
	)

	handler := caseshandler.New(
		service,
		log,
		jwttoken.NewServiceAdapter(jwtService),
		caseshandler.WithRateLimit(limiter.Limit),
		caseshandler.WithTimeout(cfg.RequestTimeout),
	)

	router := chi.NewRouter()
	handler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting beacon", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()

		outboxWorker := worker.New(outboxStore, publisher, log, cfg.OutboxInterval)
		g.Go(func() error {
			if err := outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("no kafka brokers configured, notification events stay queued in the outbox")
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return httpserver.Shutdown(srv, 10*time.Second)
	})

	return g.Wait()
}

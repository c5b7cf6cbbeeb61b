package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	bookingStore "ranchdesk/internal/booking/store"
	"ranchdesk/internal/contract/artifact"
	"ranchdesk/internal/contract/handler"
	contractMetrics "ranchdesk/internal/contract/metrics"
	"ranchdesk/internal/contract/models"
	"ranchdesk/internal/contract/service"
	contractStore "ranchdesk/internal/contract/store"
	"ranchdesk/internal/contract/worker"
	jwttoken "ranchdesk/internal/jwt_token"
	"ranchdesk/internal/platform/config"
	"ranchdesk/internal/platform/kafka/admin"
	"ranchdesk/internal/platform/kafka/consumer"
	"ranchdesk/internal/platform/kafka/producer"
	"ranchdesk/internal/platform/postgres"
	platformRedis "ranchdesk/internal/platform/redis"
	"ranchdesk/pkg/platform/audit"
	redismirror "ranchdesk/pkg/platform/audit/mirror/redis"
	auditmemory "ranchdesk/pkg/platform/audit/store/memory"
	auditpostgres "ranchdesk/pkg/platform/audit/store/postgres"
	txcontext "ranchdesk/pkg/platform/tx"
)

type app struct {
	db        *sql.DB
	redis     *platformRedis.Client
	producer  *producer.Producer
	consumer  *consumer.Consumer
	queue     *worker.MemoryQueue
	worker    *worker.Worker
	contracts *handler.Handler
	logger    *slog.Logger
}

// build connects every configured backend. Unconfigured backends fall back to
// in-memory implementations so the service runs locally with no
// infrastructure.
func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{logger: log}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	a.db = db

	a.redis, err = platformRedis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	auditLog := a.buildAudit(cfg, log)

	artifacts, err := buildArtifacts(ctx, cfg.Minio, log)
	if err != nil {
		return nil, err
	}

	var (
		contracts service.ContractStore
		bookings  worker.BookingReader
	)
	if a.db != nil {
		contracts = contractStore.NewPostgres(a.db, txcontext.WithTimeout(cfg.Contract.TxTimeout))
		bookings = bookingStore.NewPostgres(a.db)
	} else {
		log.Warn("postgres not configured, using in-memory contract and booking stores")
		contracts = contractStore.NewInMemory()
		bookings = bookingStore.NewInMemory()
	}

	svc := service.New(contracts, artifacts, auditLog,
		service.WithLogger(log),
		service.WithMetrics(contractMetrics.New()),
		service.WithExpiryPolicy(models.PolicyFor(cfg.Contract.SignatureValidity)),
		service.WithUnsignedRecheck(cfg.Contract.UnsignedRecheck),
		service.WithMaxAttempts(cfg.Contract.GenerateAttempts),
	)
	a.worker = worker.New(bookings, svc, log)

	requester, err := a.buildQueue(ctx, cfg.Kafka, log)
	if err != nil {
		return nil, err
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "ranchdesk")
	a.contracts = handler.New(svc, requester, jwttoken.NewJWTServiceAdapter(jwtService), log)

	ok = true
	return a, nil
}

func (a *app) buildAudit(cfg config.Config, log *slog.Logger) *audit.Logger {
	var primary audit.Store
	if a.db != nil {
		primary = auditpostgres.New(a.db)
	} else {
		primary = auditmemory.NewInMemoryStore()
	}
	opts := []audit.Option{
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics()),
	}
	if a.redis != nil {
		opts = append(opts, audit.WithMirror(redismirror.New(a.redis.Client, redismirror.WithStream(cfg.Redis.AuditStream))))
	}
	return audit.NewLogger(primary, opts...)
}

func buildArtifacts(ctx context.Context, cfg config.MinioConfig, log *slog.Logger) (artifact.Store, error) {
	if cfg.Endpoint == "" {
		log.Warn("minio not configured, contract artifacts are kept in memory")
		return artifact.NewMemoryStore(), nil
	}
	store, err := artifact.NewMinioStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// buildQueue returns the requester used by the admin surface. With Kafka
// configured, requests go through the topic and a consumer group drives the
// worker; otherwise an in-process queue does.
func (a *app) buildQueue(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (handler.Requester, error) {
	if len(cfg.Brokers) == 0 {
		log.Warn("kafka not configured, contract requests use an in-process queue")
		a.queue = worker.NewMemoryQueue(64, log)
		return a.queue, nil
	}

	p, err := producer.New(cfg.Brokers)
	if err != nil {
		return nil, err
	}
	a.producer = p
	if err := admin.EnsureTopics(ctx, p.Client(), 3, 1, cfg.Topic, cfg.DLQTopic); err != nil {
		return nil, fmt.Errorf("ensure kafka topics: %w", err)
	}

	a.consumer, err = consumer.New(consumer.Config{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		DLQTopic:    cfg.DLQTopic,
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.RetryBackoff,
	}, worker.NewKafkaHandler(a.worker), log,
		consumer.WithMetrics(consumer.NewMetrics()),
		consumer.WithDeadLetter(p),
	)
	if err != nil {
		return nil, err
	}
	return worker.NewKafkaRequester(p, cfg.Topic), nil
}

func (a *app) runWorker(ctx context.Context) error {
	if a.consumer != nil {
		return a.consumer.Run(ctx)
	}
	return a.queue.Run(ctx, a.worker)
}

// health reports whether every configured backend answers.
func (a *app) health(ctx context.Context) map[string]string {
	status := map[string]string{}
	if a.db != nil {
		status["postgres"] = "ok"
		if err := a.db.PingContext(ctx); err != nil {
			status["postgres"] = err.Error()
		}
	}
	if a.redis != nil {
		status["redis"] = "ok"
		if err := a.redis.Health(ctx); err != nil {
			status["redis"] = err.Error()
		}
	}
	return status
}

func (a *app) close() {
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

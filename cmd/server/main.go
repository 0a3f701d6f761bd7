package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	accounthandler "govportal/internal/account/handler"
	accountmetrics "govportal/internal/account/metrics"
	"govportal/internal/account/password"
	accountservice "govportal/internal/account/service"
	userstore "govportal/internal/account/store/user"
	apphandler "govportal/internal/application/handler"
	appmetrics "govportal/internal/application/metrics"
	appservice "govportal/internal/application/service"
	"govportal/internal/application/store/draft"
	dochandler "govportal/internal/document/handler"
	docservice "govportal/internal/document/service"
	"govportal/internal/document/storage"
	docstore "govportal/internal/document/store/document"
	"govportal/internal/platform/config"
	"govportal/internal/platform/database"
	"govportal/internal/platform/httpserver"
	"govportal/internal/platform/kafka"
	"govportal/internal/platform/logger"
	"govportal/internal/platform/metrics"
	"govportal/internal/platform/otel"
	"govportal/internal/platform/redis"
	"govportal/internal/ratelimit"
	ratelimitmetrics "govportal/internal/ratelimit/metrics"
	"govportal/internal/ratelimit/store/bucket"
	"govportal/internal/session"
	"govportal/internal/session/revocation"
	httptransport "govportal/internal/transport/http"
	audit "govportal/pkg/platform/audit"
	"govportal/pkg/platform/audit/outbox"
	"govportal/pkg/platform/audit/publisher"
	auditmemory "govportal/pkg/platform/audit/store/memory"
	auditpostgres "govportal/pkg/platform/audit/store/postgres"
	"govportal/pkg/platform/middleware/metadata"
	txcontext "govportal/pkg/platform/tx"
)

const (
	serviceName     = "govportal"
	bcryptCost      = 12
	shutdownTimeout = 15 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(log)

	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	health := map[string]httptransport.HealthCheck{}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		health["database"] = db.PingContext
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = redisClient.Health
		log.InfoContext(ctx, "using redis for rate limits and revocations")
	}

	var (
		users     accountservice.UserStore
		drafts    appservice.Store
		documents docservice.Store
		auditLog  interface {
			audit.Store
			audit.OutboxSource
		}
		runner txcontext.Runner
	)
	if db != nil {
		users = userstore.NewPostgres(db)
		drafts = draft.NewPostgres(db)
		documents = docstore.NewPostgres(db)
		auditLog = auditpostgres.New(db)
		runner = txcontext.NewPostgres(db, txcontext.WithTimeout(cfg.Database.TxTimeout))
	} else {
		log.WarnContext(ctx, "DATABASE_URL not set; using in-memory stores")
		users = userstore.NewInMemory()
		drafts = draft.NewInMemory()
		documents = docstore.NewInMemory()
		auditLog = auditmemory.NewInMemoryStore()
		runner = txcontext.NewLocal()
	}

	var (
		buckets     ratelimit.BucketStore
		revocations interface {
			accountservice.RevocationList
			IsTokenRevoked(ctx context.Context, jti string) (bool, error)
		}
	)
	if redisClient != nil {
		buckets = bucket.NewRedisBucketStore(redisClient.Client)
		revocations = revocation.NewRedisTRL(redisClient.Client)
	} else {
		buckets = bucket.NewInMemoryBucketStore()
		revocations = revocation.NewInMemoryTRL()
	}

	auditPublisher := publisher.NewPublisher(auditLog)
	tokens := session.NewJWTService(cfg.Session.JWTSecret, cfg.Session.Issuer, cfg.Session.TTL)
	validator := session.NewJWTServiceAdapter(tokens)

	limiter := ratelimit.NewLoginLimiter(buckets, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow, log, ratelimitmetrics.New(),
		ratelimit.WithEmailLimit(cfg.RateLimit.LoginEmailLimit),
	)
	accounts := accountservice.New(users, password.NewHasher(bcryptCost), tokens,
		accountservice.WithLogger(log),
		accountservice.WithAuditPublisher(auditPublisher),
		accountservice.WithMetrics(accountmetrics.New()),
		accountservice.WithLoginLimiter(limiter),
		accountservice.WithRevocationList(revocations),
	)
	apps := appservice.New(drafts, runner,
		appservice.WithLogger(log),
		appservice.WithAuditPublisher(auditPublisher),
		appservice.WithMetrics(appmetrics.New()),
		appservice.WithMaxSteps(cfg.Application.MaxSteps),
	)

	modules := []httptransport.Module{
		accounthandler.New(accounts, log, session.Cookies{Secure: cfg.IsProduction()}, cfg.Session.TTL, validator, revocations),
		apphandler.New(apps, log, validator, revocations),
	}

	if cfg.S3.Bucket != "" {
		presigner, err := storage.NewS3Presigner(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("setup document storage: %w", err)
		}
		docs := docservice.New(documents, apps, presigner, runner,
			docservice.WithLogger(log),
			docservice.WithAuditPublisher(auditPublisher),
		)
		modules = append(modules, dochandler.New(docs, log, validator, revocations))
	} else {
		log.WarnContext(ctx, "S3_BUCKET not set; document uploads disabled")
	}

	producer, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	var worker *outbox.Worker
	if producer != nil {
		defer producer.Close()
		health["kafka"] = producer.Health
		if err := producer.EnsureTopic(ctx, cfg.Kafka.TopicPartition, 1); err != nil {
			log.WarnContext(ctx, "could not ensure audit topic", "error", err)
		}
		worker = outbox.NewWorker(auditLog, producer, runner, log,
			outbox.WithInterval(cfg.Kafka.PollInterval),
			outbox.WithBatchSize(cfg.Kafka.OutboxBatch),
		)
	} else {
		log.InfoContext(ctx, "KAFKA_BROKERS not set; audit events stay in the outbox")
	}

	trustedProxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		TrustedProxies: trustedProxies,
		Metrics:        metrics.New(),
		RequestTimeout: cfg.RequestTimeout,
		HealthChecks:   health,
		ExposeMetrics:  true,
	}, modules...)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting govportal", "addr", cfg.Addr, "environment", cfg.Environment)
		return httpserver.Run(gctx, srv, shutdownTimeout)
	})
	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}

	return g.Wait()
}

func openDatabase(ctx context.Context, cfg config.Config, log *slog.Logger) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		return nil, nil
	}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.InfoContext(ctx, "database ready", "driver", cfg.Database.Driver)
	return db, nil
}

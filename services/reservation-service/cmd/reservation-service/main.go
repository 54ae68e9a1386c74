package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/varaamo/reservable/libs/config"
	"github.com/varaamo/reservable/libs/db"
	"github.com/varaamo/reservable/libs/grpcx"
	"github.com/varaamo/reservable/libs/httpx"
	"github.com/varaamo/reservable/libs/kafkax"
	otelx "github.com/varaamo/reservable/libs/otel"
	"github.com/varaamo/reservable/libs/runtime"
	"github.com/varaamo/reservable/services/reservation-service/internal/cache"
	"github.com/varaamo/reservable/services/reservation-service/internal/events"
	"github.com/varaamo/reservable/services/reservation-service/internal/handlers"
	"github.com/varaamo/reservable/services/reservation-service/internal/snapshot"
	"github.com/varaamo/reservable/services/reservation-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const grpcServiceName = "varaamo.reservable.v1.ReservationService"

func main() {
	service := config.String("SERVICE_NAME", "reservation-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	grpcPort, grpcEnabled, err := config.OptionalPort("GRPC_PORT")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext(logger)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, db.Config{URL: dbURL, MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outbox := events.NewOutbox(pool)
	repo := storage.NewReservationRepository(pool, outbox)
	if config.Bool("DB_AUTO_MIGRATE", false) {
		if err := repo.Migrate(ctx); err != nil {
			logger.Error("schema migration failed", "err", err)
			panic(err)
		}
		logger.Info("schema migrated")
	}

	rateLimit, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	cacheTTL, err := config.Duration("SNAPSHOT_CACHE_TTL", 5*time.Minute)
	if err != nil {
		panic(err)
	}
	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers), Optional: true},
	}

	memLimiter := httpx.NewRateLimiter(rateLimit, time.Minute)
	rateLimitMW := memLimiter.Middleware()

	var snapCache snapshot.Cache
	var snapshots *cache.SnapshotCache
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		defer func() { _ = rdb.Close() }()

		snapshots = cache.NewSnapshotCache(rdb, cacheTTL, service+":snap")
		snapCache = snapshots
		rateLimitMW = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service+":rl").Middleware(logger, memLimiter)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck(rdb)})
	} else {
		logger.Warn("REDIS_ADDR not set; snapshot cache disabled and rate limits are per instance")
	}

	publisher := events.NewPublisher(pool, outbox, logger, events.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	if topic := config.String("KAFKA_UNIT_TOPIC", events.TopicUnitChanged); snapshots != nil && len(brokers) > 0 && topic != "" {
		consumer := events.NewConsumer(logger, events.ConsumerConfig{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topic:   topic,
		}, events.NewUnitChangedHandler(snapshots, logger))
		go consumer.Run(ctx)
	}

	loader := snapshot.NewLoader(repo, snapCache, logger)
	reservationHandler := handlers.NewReservationHandler(loader, repo, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	reservationHandler.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		rateLimitMW,
		httpx.WithTimeout(10*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "reservation")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if grpcEnabled {
		startGRPC(ctx, logger, grpcPort)
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func startGRPC(ctx context.Context, logger *slog.Logger, port string) {
	gs := grpcx.NewServer(logger)
	gs.SetServing(grpcServiceName)
	go func() {
		if err := gs.Run(ctx, ":"+strings.TrimPrefix(port, ":")); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"communiserver/internal/analytics"
	analyticshandler "communiserver/internal/analytics/handler"
	analyticsmetrics "communiserver/internal/analytics/metrics"
	jwttoken "communiserver/internal/jwt_token"
	"communiserver/internal/location"
	"communiserver/internal/location/cache"
	locmetrics "communiserver/internal/location/metrics"
	locstore "communiserver/internal/location/store"
	"communiserver/internal/platform/config"
	"communiserver/internal/platform/database"
	"communiserver/internal/platform/httpserver"
	"communiserver/internal/platform/logger"
	platformmetrics "communiserver/internal/platform/metrics"
	"communiserver/internal/platform/middleware"
	platformredis "communiserver/internal/platform/redis"
	recpostgres "communiserver/internal/records/postgres"
	"communiserver/internal/scope"
	"communiserver/internal/search"
	searchhandler "communiserver/internal/search/handler"
	searchmetrics "communiserver/internal/search/metrics"
	auditkafka "communiserver/pkg/platform/audit/kafka"
	"communiserver/pkg/platform/audit/publisher"
	auditpostgres "communiserver/pkg/platform/audit/store/postgres"
	"communiserver/pkg/platform/middleware/metadata"
	"communiserver/pkg/platform/middleware/requesttime"
)

const auditBuffer = 256

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Hierarchy graph over postgres, with the optional Redis cache.
	graphOpts := []location.Option{
		location.WithLogger(log),
		location.WithMetrics(locmetrics.New()),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		graphOpts = append(graphOpts, location.WithCache(cache.NewRedis(redisClient.Client, cfg.HierarchyCacheTTL)))
		log.Info("hierarchy cache enabled", "ttl", cfg.HierarchyCacheTTL)
	}
	graph := location.NewGraph(locstore.NewPostgres(db), graphOpts...)
	resolver := scope.NewResolver(graph, log)

	// Read stores shared by analytics and search.
	users := recpostgres.NewUserStore(db)
	activities := recpostgres.NewActivityStore(db)
	tasks := recpostgres.NewTaskStore(db)
	reports := recpostgres.NewReportStore(db)
	locations := recpostgres.NewLocationStore(db)

	analyticsService := analytics.NewService(resolver, graph, analytics.Readers{
		Users:      users,
		Activities: activities,
		Tasks:      tasks,
		Reports:    reports,
		Locations:  locations,
	},
		analytics.WithLogger(log),
		analytics.WithMetrics(analyticsmetrics.New()),
	)

	searchService := search.NewService(resolver, graph, locations, []search.Adapter{
		search.NewActivityAdapter(activities, graph),
		search.NewTaskAdapter(tasks, activities, graph),
		search.NewReportAdapter(reports, graph),
		search.NewUserAdapter(users),
		search.NewLocationAdapter(locations, graph),
	},
		search.WithLogger(log),
		search.WithMetrics(searchmetrics.New()),
	)

	// Audit trail: async buffer into postgres, fanned out to Kafka when
	// brokers are configured.
	auditOpts := []publisher.Option{
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := auditkafka.NewPublisher(ctx, cfg.Kafka.Brokers,
			auditkafka.WithTopic(cfg.Kafka.Topic),
			auditkafka.WithLogger(log),
		)
		if err != nil {
			log.Error("kafka audit publisher failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaSink.Close(closeCtx); err != nil {
				log.Warn("kafka audit close failed", "error", err)
			}
		}()
		auditOpts = append(auditOpts, publisher.WithSink(kafkaSink))
		log.Info("kafka audit publisher enabled", "topic", cfg.Kafka.Topic)
	}
	auditor := publisher.NewPublisher(auditpostgres.NewStore(db), auditOpts...)
	defer auditor.Close()

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "communiserver")
	httpMetrics := platformmetrics.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(httpMetrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtService, log))
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		analyticshandler.New(analyticsService, log, auditor).Register(r)
		searchhandler.New(searchService, log, auditor).Register(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

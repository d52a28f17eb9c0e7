package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/xavierca1/cohort-nurture/internal/config"
	"github.com/xavierca1/cohort-nurture/internal/infra/database"
	"github.com/xavierca1/cohort-nurture/internal/infra/http/handlers"
	"github.com/xavierca1/cohort-nurture/internal/infra/http/middleware"
	"github.com/xavierca1/cohort-nurture/internal/infra/integration/kommo"
	"github.com/xavierca1/cohort-nurture/internal/infra/mail"
	"github.com/xavierca1/cohort-nurture/internal/infra/queue"
	"github.com/xavierca1/cohort-nurture/internal/infra/worker"
	"github.com/xavierca1/cohort-nurture/internal/pkg/distlock"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty || !cfg.Server.IsProduction())

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Database
	db, err := database.NewDBConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	log.Info().Msg("connected to postgres")

	// 2. Optional Redis and RabbitMQ
	redisClient, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var rabbitMQ *queue.RabbitMQ
	var events usecase.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		defer rabbitMQ.Close()
		events = queue.NewProducer(rabbitMQ.Ch)
		log.Info().Msg("connected to rabbitmq")
	} else {
		log.Warn().Msg("RABBITMQ_URL not set, lead events are not published")
	}

	// 3. Repositories and gateways
	leadRepo := database.NewLeadRepository(db)

	mailGateway, err := mail.NewGateway(ctx, cfg.Mail)
	if err != nil {
		return fmt.Errorf("mail gateway: %w", err)
	}

	metrics := middleware.NewPrometheusRecorder(prometheus.DefaultRegisterer)

	// 4. Use cases
	submitUC := usecase.NewSubmitLeadUseCase(leadRepo, mailGateway, events, metrics)
	submitUC.SendTimeout = cfg.Mail.SendTimeout()

	updateUC := usecase.NewUpdateLeadStatusUseCase(leadRepo, events)

	sendUC := usecase.NewSendEmailUseCase(leadRepo, mailGateway, events, metrics)
	sendUC.SendTimeout = cfg.Mail.SendTimeout()

	queryUC := usecase.NewLeadQueryUseCase(leadRepo)

	sweeper := usecase.NewSweeper(leadRepo, mailGateway,
		usecase.WithEventPublisher(events),
		usecase.WithMetrics(metrics),
		usecase.WithLocker(distlock.NewLock(redisClient, db, "automation-sweep", cfg.Automation.LockTTL()), cfg.Automation.LockTTL()),
		usecase.WithSendTimeout(cfg.Mail.SendTimeout()),
	)

	// 5. Workers
	if rabbitMQ != nil && cfg.Kommo.Enabled() {
		if err := startCRMWorker(ctx, rabbitMQ, kommo.NewClient(cfg.Kommo)); err != nil {
			return err
		}
	}

	var automation *worker.AutomationWorker
	if cfg.Automation.Enabled {
		automation = worker.NewAutomationWorker(sweeper, cfg.Automation.Interval())
		if err := automation.Start(ctx); err != nil {
			return err
		}
		defer automation.Stop()
	} else {
		log.Warn().Msg("email automation disabled")
	}

	// 6. Handlers
	formHandler := handlers.NewFormHandler(submitUC, updateUC, queryUC, sendUC)
	emailHandler := handlers.NewEmailHandler(sendUC, queryUC, sweeper)
	healthHandler := handlers.NewHealthHandler(cfg.Server.Environment, healthChecks(db, redisClient, rabbitMQ))

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", handlers.Root)
	r.Get("/api/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/api/form", formHandler.Routes())
	r.Mount("/api/email", emailHandler.Routes())
	r.NotFound(handlers.NotFound)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("environment", cfg.Server.Environment).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		log.Info().Msg("REDIS_URL not set, sweeps are guarded by a postgres advisory lock")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info().Msg("connected to redis")
	return client, nil
}

// startCRMWorker consumes lead events on a dedicated channel and syncs
// conversions to Kommo.
func startCRMWorker(ctx context.Context, rabbitMQ *queue.RabbitMQ, crm queue.CRMClient) error {
	ch, err := rabbitMQ.Conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}

	w := queue.NewWorker(ch, crm)
	go func() {
		defer ch.Close()
		if err := w.Start(ctx, queue.QueueName); err != nil {
			log.Error().Err(err).Msg("crm worker stopped")
		}
	}()
	return nil
}

func healthChecks(db *sql.DB, redisClient *redis.Client, rabbitMQ *queue.RabbitMQ) map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"database": db.PingContext,
		"redis":    nil,
		"rabbitmq": nil,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if rabbitMQ != nil {
		checks["rabbitmq"] = func(ctx context.Context) error {
			if !rabbitMQ.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

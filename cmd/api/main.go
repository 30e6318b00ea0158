package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tappy-hq/tappy-backend/api/routes"
	"github.com/tappy-hq/tappy-backend/internal/auth"
	"github.com/tappy-hq/tappy-backend/internal/blog"
	"github.com/tappy-hq/tappy-backend/internal/metrics"
	"github.com/tappy-hq/tappy-backend/internal/payments"
	"github.com/tappy-hq/tappy-backend/internal/plans"
	"github.com/tappy-hq/tappy-backend/internal/platforms"
	"github.com/tappy-hq/tappy-backend/internal/settings"
	"github.com/tappy-hq/tappy-backend/internal/subscribers"
	"github.com/tappy-hq/tappy-backend/internal/users"
	"github.com/tappy-hq/tappy-backend/internal/webhooks/kirvano"
	"github.com/tappy-hq/tappy-backend/pkg/auth/session"
	"github.com/tappy-hq/tappy-backend/pkg/config"
	"github.com/tappy-hq/tappy-backend/pkg/db"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
	obs "github.com/tappy-hq/tappy-backend/pkg/metrics"
	"github.com/tappy-hq/tappy-backend/pkg/migrate"
	"github.com/tappy-hq/tappy-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()
	userRepo := users.NewRepository(gdb)
	subscriberRepo := subscribers.NewRepository(gdb)
	planRepo := plans.NewRepository(gdb)
	platformRepo := platforms.NewRepository(gdb)
	blogRepo := blog.NewRepository(gdb)
	settingsRepo := settings.NewRepository(gdb)
	paymentRepo := payments.NewRepository(gdb)
	metricsRepo := metrics.NewRepository(gdb)
	deadLetterRepo := kirvano.NewDeadLetterRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo: userRepo,
		Sessions: sessionManager,
		JWT:      cfg.JWT,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	subscriberService, err := subscribers.NewService(subscribers.ServiceParams{Repo: subscriberRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriber service", err)
		os.Exit(1)
	}

	planService, err := plans.NewService(plans.ServiceParams{Repo: planRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create plan service", err)
		os.Exit(1)
	}

	platformService, err := platforms.NewService(platforms.ServiceParams{Repo: platformRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create platform service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.ServiceParams{
		Repo:        userRepo,
		PasswordCfg: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	blogService, err := blog.NewService(blog.ServiceParams{Repo: blogRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create blog service", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settings.ServiceParams{
		Repo:              settingsRepo,
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{Repo: paymentRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	metricsService, err := metrics.NewService(metrics.ServiceParams{Repo: metricsRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create metrics service", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	webhookObserver := obs.NewWebhookMetrics(promRegistry)

	allowUnsigned := cfg.Kirvano.AllowUnsigned && !cfg.App.IsProd()
	kirvanoVerifier, err := kirvano.NewVerifier(settingsRepo, logg, allowUnsigned)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook verifier", err)
		os.Exit(1)
	}

	kirvanoGuard, err := kirvano.NewIdempotencyGuard(redisClient, cfg.Kirvano.EventDedupTTL, kirvano.Provider)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	kirvanoService, err := kirvano.NewService(kirvano.ServiceParams{
		TransactionRunner: dbClient,
		PaymentRepo:       paymentRepo,
		SubscriberRepo:    subscriberRepo,
		PlanRepo:          planRepo,
		Metrics:           metricsService,
		DeadLetterRepo:    deadLetterRepo,
		Logger:            logg,
		Observer:          webhookObserver,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Params{
		Config:            cfg,
		Logger:            logg,
		DBPinger:          dbClient,
		RedisClient:       redisClient,
		Sessions:          sessionManager,
		AuthService:       authService,
		SubscriberService: subscriberService,
		PlanService:       planService,
		PlatformService:   platformService,
		UserService:       userService,
		BlogService:       blogService,
		SettingsService:   settingsService,
		MetricsService:    metricsService,
		PaymentService:    paymentService,
		KirvanoService:    kirvanoService,
		KirvanoVerifier:   kirvanoVerifier,
		KirvanoGuard:      kirvanoGuard,
		DeadLetterRepo:    deadLetterRepo,
		PromRegistry:      promRegistry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

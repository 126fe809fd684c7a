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
	"github.com/kitchenconnect/kitchen-service/internal/api/handler"
	"github.com/kitchenconnect/kitchen-service/internal/config"
	"github.com/kitchenconnect/kitchen-service/internal/db"
	"github.com/kitchenconnect/kitchen-service/internal/db/repository"
	"github.com/kitchenconnect/kitchen-service/internal/events"
	"github.com/kitchenconnect/kitchen-service/internal/lifecycle"
	"github.com/kitchenconnect/kitchen-service/internal/logger"
	"github.com/kitchenconnect/kitchen-service/internal/metrics"
	"github.com/kitchenconnect/kitchen-service/internal/realtime"
	"github.com/kitchenconnect/kitchen-service/internal/redisx"
	"github.com/kitchenconnect/kitchen-service/internal/router"
	"github.com/kitchenconnect/kitchen-service/internal/service"
	"github.com/kitchenconnect/kitchen-service/internal/websockets"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "kitchen-service"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(serviceName, "info", false, os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(serviceName, cfg.Log.Level, cfg.Log.Pretty, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.NewPostgres(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(cfg.Database, os.Getenv("MIGRATIONS_DIR")); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	repos := repository.NewFactory(database.DB)

	hub := websockets.NewHub(log)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	dispatcher := lifecycle.NewDispatcher(log, cfg.Lifecycle.NotifyTimeout, websockets.NewStageNotifier(hub))

	var stageCache service.StageCache
	var dedup service.Deduper
	if cfg.Redis.Addr != "" {
		rdb := redisx.New(cfg.Redis.Addr)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable at start-up")
		}
		cache := redisx.NewStageCache(rdb, cfg.Redis.StageTTL)
		dispatcher.Add(cache)
		stageCache = cache
		dedup = redisx.NewDeduper(rdb, "whatsapp", cfg.Redis.DedupTTL)
	} else {
		log.Info().Msg("redis not configured; stage cache and webhook dedup disabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(events.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), serviceName)
		defer producer.Close()
		dispatcher.Add(producer)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("order event stream enabled")
	}

	machine := lifecycle.NewMachine(lifecycle.Policy{AdminOverride: cfg.Lifecycle.AdminOverride})

	authService := service.NewAuthService(repos.User, service.JWTConfig{
		Secret:    cfg.JWT.Secret,
		ExpiresIn: cfg.JWT.ExpiresIn,
	}, log)
	orderService := service.NewOrderService(repos.Order, repos.User, machine, stageCache, dispatcher, m, log)
	messagingService := service.NewMessagingService(repos.Message, service.RelayConfig{
		WebhookURL: cfg.WhatsApp.WebhookURL,
		Timeout:    cfg.WhatsApp.Timeout,
	}, dedup, m, log)
	dishService := service.NewDishService(repos.Dish, repos.User, log)
	archiveService := service.NewArchiveService(repos.Order, cfg.Archive.TipRate, m, log)

	if err := archiveService.Start(ctx, cfg.Archive.Schedule); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule archive job")
	}

	listener := realtime.NewListener(cfg.Database.DSN(), hub, log)
	go func() {
		if err := listener.Run(ctx); err != nil {
			log.Error().Err(err).Msg("change listener stopped")
		}
	}()

	r := router.New(router.Deps{
		Users:     handler.NewUserHandler(authService),
		Orders:    handler.NewOrderHandler(orderService, archiveService),
		Messaging: handler.NewMessagingHandler(messagingService, cfg.WhatsApp.InboundSecret),
		Dishes:    handler.NewDishHandler(dishService),
		WebSocket: handler.NewWebSocketHandler(hub, authService, websockets.NewUpgrader(cfg.Server.AllowedOrigins)),
		Authn:     authService,
		Metrics:   m,
		Health:    database.HealthCheck,
		Log:       log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Address).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	archiveService.Stop()
	dispatcher.Wait()
	<-hubDone

	log.Info().Msg("server exited properly")
}

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
	"go.uber.org/multierr"

	"github.com/roomdang/roomdang-backend/api/controllers"
	"github.com/roomdang/roomdang-backend/api/routes"
	"github.com/roomdang/roomdang-backend/internal/alarms"
	"github.com/roomdang/roomdang-backend/internal/boards"
	"github.com/roomdang/roomdang-backend/internal/events"
	"github.com/roomdang/roomdang-backend/internal/members"
	"github.com/roomdang/roomdang-backend/internal/messages"
	"github.com/roomdang/roomdang-backend/internal/parties"
	"github.com/roomdang/roomdang-backend/pkg/config"
	"github.com/roomdang/roomdang-backend/pkg/db"
	"github.com/roomdang/roomdang-backend/pkg/logger"
	"github.com/roomdang/roomdang-backend/pkg/metrics"
	"github.com/roomdang/roomdang-backend/pkg/migrate"
	"github.com/roomdang/roomdang-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	registry := alarms.NewRegistry(logg)
	registry.SetMetrics(metrics.NewSSEMetrics(prometheus.DefaultRegisterer, registry.ActiveConnectionCount))

	dispatcher, err := alarms.NewDispatcher(registry, logg, cfg.SSE)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	alarmsService, err := alarms.NewService(alarms.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create alarms service", err)
		os.Exit(1)
	}

	membersService, err := members.NewService(dbClient, members.NewRepository(dbClient.DB()), cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create members service", err)
		os.Exit(1)
	}

	bus := events.NewBus(logg)

	messagesService, err := messages.NewService(dbClient, messages.NewRepository(dbClient.DB()), membersService, bus)
	if err != nil {
		logg.Error(context.Background(), "failed to create messages service", err)
		os.Exit(1)
	}

	partiesService, err := parties.NewService(dbClient, parties.NewRepository(dbClient.DB()), membersService, bus)
	if err != nil {
		logg.Error(context.Background(), "failed to create parties service", err)
		os.Exit(1)
	}

	boardsService, err := boards.NewService(dbClient, boards.NewRepository(dbClient.DB()), bus)
	if err != nil {
		logg.Error(context.Background(), "failed to create boards service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brokerMetrics := metrics.NewBrokerMetrics(prometheus.DefaultRegisterer)

	var publisher alarms.Publisher
	if cfg.AMQP.Enabled() {
		brokerPublisher, err := alarms.NewBrokerPublisher(cfg.AMQP, logg, brokerMetrics)
		if err != nil {
			logg.Error(ctx, "failed to connect notification broker", err)
			os.Exit(1)
		}
		defer func() {
			if err := brokerPublisher.Close(); err != nil {
				logg.Error(ctx, "error closing broker publisher", err)
			}
		}()
		publisher = brokerPublisher

		consumer, err := alarms.NewBrokerConsumer(cfg.AMQP, dispatcher, brokerPublisher, logg, brokerMetrics)
		if err != nil {
			logg.Error(ctx, "failed to start notification consumer", err)
			os.Exit(1)
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				logg.Error(ctx, "error closing broker consumer", err)
			}
		}()
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "notification consumer stopped unexpectedly", err)
			}
		}()
	}

	alarms.NewListeners(alarmsService, dispatcher, publisher, logg).Register(bus)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"broker": cfg.AMQP.Enabled(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		}, routes.Services{
			Members:    membersService,
			Alarms:     alarmsService,
			Dispatcher: dispatcher,
			Messages:   messagesService,
			Parties:    partiesService,
			Boards:     boardsService,
		}),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var shutdownErrs error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrs = multierr.Append(shutdownErrs, err)
		}
		bus.Wait()
		if shutdownErrs != nil {
			logg.Error(ctx, "shutdown completed with errors", shutdownErrs)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/orderdesk/backend/internal/adapters/cache"
	"github.com/zatekoja/orderdesk/backend/internal/adapters/directory"
	"github.com/zatekoja/orderdesk/backend/internal/adapters/events"
	"github.com/zatekoja/orderdesk/backend/internal/adapters/notify"
	"github.com/zatekoja/orderdesk/backend/internal/api/handlers"
	"github.com/zatekoja/orderdesk/backend/internal/api/routes"
	"github.com/zatekoja/orderdesk/backend/internal/application/services"
	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/clients/hospitalapi"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
	"github.com/zatekoja/orderdesk/backend/pkg/config"
	"github.com/zatekoja/orderdesk/backend/pkg/pagination"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	// Traces, metrics and logs go to the collector when enabled
	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
			if shutdown != nil {
				_ = shutdown(ctx)
			}
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	hospital := hospitalapi.NewClient(cfg.HospitalAPI.BaseURL, cfg.HospitalAPI.Token, cfg.HospitalAPI.Timeout)

	// Department names go through Redis when it is reachable
	var departments providers.DepartmentDirectory = hospital
	var eventBus *events.RedisEventBus
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable; department cache and decision events disabled")
		} else {
			cached := directory.NewCachedDepartmentDirectory(
				hospital,
				cache.NewRedisAdapter(redisClient.Client(), "orderdesk:"),
				cfg.Departments.CacheTTLSeconds,
			)
			cached.SetMetrics(metrics)
			departments = cached
			eventBus = events.NewRedisEventBus(redisClient.Client())
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis initialized")
		}
	}

	// Each screen session gets its own board
	boards := services.NewBoardRegistry(func() (*services.OrderBoard, error) {
		board, err := services.NewOrderBoard(hospital, departments, hospital, notify.NewLogNotifier(), services.BoardOptions{
			HospitalID:            cfg.Orders.HospitalID,
			Role:                  cfg.Orders.Role,
			PageSize:              cfg.Orders.PageSize,
			PagingMode:            pagination.Mode(cfg.Orders.PagingMode),
			DepartmentConcurrency: cfg.Departments.LookupConcurrency,
		})
		if err != nil {
			return nil, err
		}
		board.SetMetrics(metrics)
		if eventBus != nil {
			board.SetEventBus(eventBus)
		}
		return board, nil
	}, cfg.Orders.MaxSessions)

	// A failed first load leaves an empty board; staff can reload
	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.HospitalAPI.Timeout*3)
	if _, err := boards.Board(loadCtx, services.DefaultSession); err != nil {
		log.Fatal().Err(err).Msg("failed to create order board")
	}
	cancelLoad()

	orderHandler := handlers.NewOrderHandler(func(ctx context.Context, sessionID string) (handlers.OrderBoard, error) {
		return boards.Board(ctx, sessionID)
	})
	router := routes.NewRouter(orderHandler, metrics, cfg.Server.AllowedOrigins)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HospitalAPI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	boards.Close()

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("error closing Redis client")
		}
	}

	log.Info().Msg("server stopped")
}

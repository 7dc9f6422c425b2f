package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/endlessworld/campusnav/internal/api"
	"github.com/endlessworld/campusnav/internal/api/handler"
	"github.com/endlessworld/campusnav/internal/api/middleware"
	"github.com/endlessworld/campusnav/internal/core/service"
	mongodb "github.com/endlessworld/campusnav/internal/infrastructure/db/mongo"
	redisdb "github.com/endlessworld/campusnav/internal/infrastructure/db/redis"
	"github.com/endlessworld/campusnav/internal/infrastructure/directions"
	"github.com/endlessworld/campusnav/internal/infrastructure/queue"
	"github.com/endlessworld/campusnav/internal/infrastructure/ws"
	"github.com/endlessworld/campusnav/internal/pkg/config"
	"github.com/endlessworld/campusnav/pkg/logger"
)

const (
	recalculatePath = "/v1/navigation/recalculate"
	tokenTTL        = 24 * time.Hour
	shutdownTimeout = 15 * time.Second
	evictInterval   = time.Minute
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP and websocket API",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "campusnav"})

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	authRepo := mongodb.NewAuthRepository(db)
	locationRepo := mongodb.NewLocationRepository(db)
	routeRequests := mongodb.NewRouteRequestRepository(db)
	notificationRepo := mongodb.NewNotificationRepository(db)
	if err := ensureIndexes(ctx, authRepo, locationRepo, routeRequests, notificationRepo); err != nil {
		return err
	}

	sessions := redisdb.NewSessionStore(rdb, cfg.Redis.SessionTTL)
	dedup := redisdb.NewFixDedup(rdb)

	hub := ws.NewHub(func(token string) (string, string, error) {
		return middleware.ParseToken(cfg.JWTSecret, token)
	}, log)
	notifier := service.NewNotificationService(notificationRepo, hub, logger.With(log, "notifications"))

	navigator := service.NewNavigator(cfg.Tracking.Tracker(), sessions, notifier, recalculatePath, logger.With(log, "navigator"))

	// Workers outlive the HTTP server so in-flight requests and
	// recalculations can still be applied during shutdown.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher := queue.NewDispatcher(cfg.Tracking.Workers, navigator, logger.With(log, "dispatcher"))
	dispatcher.Start(workerCtx)

	osrm := directions.NewClient(directions.Config{
		BaseURL:    cfg.Directions.BaseURL,
		Profiles:   cfg.Directions.Profiles,
		Timeout:    cfg.Directions.Timeout,
		MaxRetries: cfg.Directions.MaxRetries,
	}, log)

	navigation := service.NewNavigationService(service.NavigationConfig{
		Boundary:             cfg.Boundary.Bound(),
		RecalculationTimeout: cfg.Tracking.RecalculationTimeout,
	}, dispatcher, sessions, dedup, locationRepo, routeRequests, osrm, notifier, logger.With(log, "navigation"))

	hub.SetMessageHandler(handler.NewRealtimeHandler(navigation).Handle)

	e := api.NewRouter(api.Deps{
		JWTSecret:     cfg.JWTSecret,
		Auth:          service.NewAuthService(authRepo, cfg.JWTSecret, tokenTTL),
		Navigation:    navigation,
		Locations:     service.NewLocationService(locationRepo, cfg.Boundary.Bound(), logger.With(log, "locations")),
		Notifications: notifier,
		WebSocket:     http.HandlerFunc(hub.ServeWS),
		HealthChecks: map[string]handler.Check{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
		Log: logger.With(log, "http"),
	})

	go evictIdleSessions(ctx, navigator, cfg.Tracking.SessionIdle, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	hub.Close()
	navigation.Wait()
	stopWorkers()

	select {
	case <-dispatcher.Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("dispatcher did not stop in time")
	}
	log.Info().Msg("shutdown complete")
	return nil
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureIndexes(ctx context.Context, repos ...indexer) error {
	for _, r := range repos {
		if err := r.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

// evictIdleSessions drops in-memory sessions that have been quiet for
// maxIdle; their snapshots stay in Redis.
func evictIdleSessions(ctx context.Context, n *service.Navigator, maxIdle time.Duration, log zerolog.Logger) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := n.Evict(maxIdle); evicted > 0 {
				log.Debug().Int("evicted", evicted).Msg("idle sessions evicted")
			}
		}
	}
}

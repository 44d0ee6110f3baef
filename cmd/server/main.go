package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"echoeditor/internal/cache"
	"echoeditor/internal/config"
	"echoeditor/internal/presence"
	"echoeditor/internal/repository"
	"echoeditor/internal/service"
	"echoeditor/internal/transport/rest"
	"echoeditor/internal/transport/ws"
)

// @title Echo Editor API
// @version 1.0
// @description Real-time collaborative code editor backend
// @host localhost:8080
// @BasePath /v1
func main() {
	log := logrus.WithField("component", "server")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// MongoDB connection. An unreachable store is not fatal: the failover
	// store degrades to memory-only mode and recovers when Mongo is back.
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logrus.Fatalf("invalid MongoDB configuration: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Warnf("MongoDB unreachable, starting in memory-only mode: %v", err)
	} else {
		log.Info("connected to MongoDB")
	}
	cancel()

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection. The cache is best-effort, so a dead Redis only
	// costs lookup performance.
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	var sessionCache cache.SessionCache
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Warnf("Redis unreachable, session cache disabled: %v", err)
	} else {
		log.Info("connected to Redis")
		sessionCache = cache.NewSessionCache(rdb)
	}

	// Stores: Mongo with per-call fallback to memory.
	mongoStore := repository.NewMongoStore(db)
	memoryStore := repository.NewMemoryStore()
	store := repository.NewFailover(mongoStore, memoryStore, func(ctx context.Context) error {
		return mongoClient.Ping(ctx, nil)
	})

	// Presence registry and broadcast hub.
	registry := presence.NewRegistry()
	hub := ws.NewHub(registry)

	// Services.
	sessionSvc := service.NewSessionService(store, sessionCache)
	collabSvc := service.NewCollabService(store, registry, sessionCache)
	collabSvc.SetBroadcaster(hub)

	sweeper := service.NewSweeper(store, registry, cfg.SweepInterval)
	sweeper.SetBroadcaster(hub)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	// Router.
	router := rest.NewRouter(&rest.Container{
		SessionService: sessionSvc,
		WSHandler:      ws.NewHandler(hub, collabSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Infof("server starting on :%s", cfg.HTTPPort)
		log.Info("endpoints:")
		log.Info("  POST /v1/sessions")
		log.Info("  GET  /v1/sessions/{roomId}")
		log.Info("  WS   /v1/ws")
		log.Info("  GET  /health")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("ListenAndServe: %v", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")
	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("server forced to shutdown: %v", err)
	}

	log.Info("server exited")
}

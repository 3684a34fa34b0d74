package main

import (
	"context"
	"log"
	"net/http"
	"time"

	v1 "go-parley/cmd/api/router/v1"
	"go-parley/internal/infrastructure/auth"
	cacheadapter "go-parley/internal/infrastructure/cache/adapter"
	"go-parley/internal/infrastructure/config"
	"go-parley/internal/infrastructure/database"
	queueadapter "go-parley/internal/infrastructure/queue/adapter"
	"go-parley/internal/infrastructure/realtime"
	"go-parley/internal/pkg/interaction/application/task"
	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/adapter"
	"go-parley/internal/pkg/interaction/gateway/port"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Connect to the database on startup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	hub := realtime.NewHub()
	defer hub.Close()

	store := adapter.NewPgGateway(db)

	// Redis is optional: without it the server runs uncached and expiry
	// tasks are not scheduled, which is fine for local development.
	var gw port.Gateway = store
	if cfg.RedisURL != "" {
		cache, err := cacheadapter.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer cache.Close()

		queue, err := queueadapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to create queue client: %v", err)
		}
		defer queue.Close()

		gw = adapter.NewCachedGateway(store, cache, hub, queue)

		worker, err := queueadapter.NewAsynqServer(cfg.RedisURL, 3)
		if err != nil {
			log.Fatalf("failed to create queue server: %v", err)
		}
		task.RegisterExpireTask(worker, store, hub, func(ctx context.Context, rec *interaction.Interaction) {
			keys := append(
				adapter.ListCacheKeys(rec.InitiatorID, rec.Kind),
				adapter.ListCacheKeys(rec.CounterpartyID, rec.Kind)...,
			)
			if _, err := cache.Del(ctx, keys...); err != nil {
				log.Printf("expire invalidation: %v", err)
			}
		})

		workerCtx, stopWorker := context.WithCancel(context.Background())
		defer stopWorker()
		go func() {
			if err := worker.Run(workerCtx); err != nil {
				log.Printf("queue worker stopped: %v", err)
			}
		}()
	} else {
		log.Println("REDIS_URL not set; running without cache, feed-only invalidation")
	}

	authn := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenValidity)

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})

	v1.RegisterRoutes(r, gw, hub, authn)

	// Start HTTP server (blocks until shutdown)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrattend/internal/config"
	"qrattend/internal/queue"
	"qrattend/internal/roster"
	"qrattend/internal/store"
)

// Worker consumes roster import jobs published by the API.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" || !cfg.RedisEnabled() {
		log.Fatalf("worker needs QUEUE_BACKEND=redis and REDIS_ADDR; the API imports in-process otherwise")
	}

	db, err := store.NewDB(cfg.DatabaseURL, store.Options{MaxOpenConns: cfg.DBMaxOpenConns, Timeout: cfg.DBTimeout})
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUntil(ctx, 5*time.Second); err != nil {
		log.Printf("worker stopped before the schema was ready: %v", err)
		return
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, consumer will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	importer := roster.NewImporter(roster.NewRepository(db))

	log.Println("worker started, waiting for roster imports...")
	if err := importer.Run(ctx, q); err != nil {
		log.Fatalf("queue consume failed: %v", err)
	}
	log.Println("worker stopped")
}

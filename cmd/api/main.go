package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"qrattend/internal/attendance"
	"qrattend/internal/config"
	"qrattend/internal/credential"
	"qrattend/internal/devicestatus"
	"qrattend/internal/handler"
	"qrattend/internal/identity"
	"qrattend/internal/queue"
	"qrattend/internal/roster"
	"qrattend/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

const schemaRetryInterval = 5 * time.Second

func importRoster(ctx context.Context, importer *roster.Importer, path string) {
	res, err := importer.ImportFile(ctx, path)
	if err != nil {
		log.Printf("startup roster import skipped: %v", err)
		return
	}
	log.Printf("startup roster import from %s: %d inserted, %d existing, %d invalid, %d failed",
		path, res.Inserted, res.Existing, res.Invalid, res.Failed)
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL, store.Options{MaxOpenConns: cfg.DBMaxOpenConns, Timeout: cfg.DBTimeout})
	if db == nil {
		return err
	}
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer db.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	students := roster.NewRepository(db)
	importer := roster.NewImporter(students)
	if err := db.EnsureSchema(ctx); err != nil {
		log.Printf("warning: schema migration failed, retrying in background: %v", err)
		go func() {
			if err := db.MigrateUntil(ctx, schemaRetryInterval); err != nil {
				return
			}
			log.Println("schema migrated")
			importRoster(ctx, importer, cfg.RosterCSV)
		}()
	} else {
		importRoster(ctx, importer, cfg.RosterCSV)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var cache credential.Cache
	if redisClient != nil {
		cache = credential.NewRedisCache(redisClient.Client, cfg.CacheTTL)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" || redisClient == nil {
		// No separate worker consumes an in-process queue.
		mem := queue.NewInMemory(16)
		q = mem
		go func() {
			if err := importer.Run(ctx, mem); err != nil {
				log.Printf("roster import consumer stopped: %v", err)
			}
		}()
		log.Println("roster imports run in-process")
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	h := handler.New(handler.Config{
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		SessionTTL:    cfg.SessionTTL,
		WebDir:        cfg.WebDir,
		CORSOrigins:   cfg.CORSOrigins,
	}, handler.Deps{
		DB:          db,
		Redis:       redisClient,
		Identities:  identity.NewService(identity.NewRepository(db)),
		Credentials: credential.NewService(credential.NewRepository(db), cache),
		Attendance:  attendance.NewService(attendance.NewRepository(db), students),
		Students:    students,
		Queue:       q,
		Devices:     devicestatus.New(cfg.DeviceServiceURL, cfg.DeviceSkip),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

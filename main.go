package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PasteBox/config"
	"PasteBox/internal/handler"
	"PasteBox/internal/mq"
	"PasteBox/internal/repo"
	"PasteBox/internal/service"
	"PasteBox/internal/storage"
	"PasteBox/internal/task"
	"PasteBox/router"
	"PasteBox/utils"

	"github.com/gin-gonic/gin"
)

// main initializes services and starts the HTTP server.
func main() {
	config.InitConfig()
	cfg := config.AppConfig
	log := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.OpenDB(cfg)
	if err != nil {
		log.Error("init db failed", "err", err)
		os.Exit(1)
	}
	rdb, err := repo.NewRedis(ctx, cfg)
	if err != nil {
		log.Error("init redis failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Error("init storage failed", "err", err)
		os.Exit(1)
	}

	publisher := mq.NewPublisher(cfg.RabbitMQURL)
	defer publisher.Close()

	files := service.NewFileService(service.Deps{
		Records:  repo.NewRecordStore(db),
		Owners:   repo.NewUserStore(db),
		Storage:  store,
		Cache:    utils.NewShortCodeCache(utils.NewRedisCache(rdb), cfg.ShortCodeCacheTTL),
		Expiry:   repo.NewExpiryKeys(rdb),
		Notifier: task.NewEnqueuer(repo.NewNotifyTaskStore(db), publisher, log),
		Logger:   log,
	}, service.OptionsFromConfig(cfg))

	if err := repo.EnableKeyspaceNotifications(ctx, rdb); err != nil {
		log.Warn("enable redis keyspace notifications failed", "err", err)
	} else {
		ready := make(chan struct{})
		go func() {
			err := repo.ListenRedisExpired(ctx, rdb, ready, func(ctx context.Context, id string) {
				if _, err := files.ExpireByID(ctx, id); err != nil {
					log.Warn("expire by key event failed", "file_id", id, "err", err)
				}
			})
			if err != nil {
				log.Error("redis expiry listener stopped", "err", err)
			}
		}()
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			log.Warn("redis expiry listener not ready, relying on lazy expiry")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.InitRouter(handler.New(files, cfg.MaxUploadBytes, log), router.Options{
		CORSOrigins: cfg.CORSOrigins,
		Issuer:      utils.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour),
		Logger:      log,
		Health: map[string]handler.Pinger{
			"db": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http server started", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"PasteBox/config"
	"PasteBox/internal/repo"
	"PasteBox/internal/service"
	"PasteBox/internal/storage"
	"PasteBox/internal/task"
	"PasteBox/internal/worker"
	"PasteBox/utils"
)

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

	files := service.NewFileService(service.Deps{
		Records: repo.NewRecordStore(db),
		Owners:  repo.NewUserStore(db),
		Storage: store,
		Cache:   utils.NewShortCodeCache(utils.NewRedisCache(rdb), cfg.ShortCodeCacheTTL),
		Expiry:  repo.NewExpiryKeys(rdb),
		Logger:  log,
	}, service.OptionsFromConfig(cfg))

	smtpPort, _ := strconv.Atoi(cfg.SMTPPort)
	mailer := utils.NewMailer(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     smtpPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		TLS:      cfg.SMTPTLS,
		StartTLS: cfg.SMTPStartTLS,
	})
	tasks := repo.NewNotifyTaskStore(db)
	notify := worker.NewNotifyWorker(task.NewProcessor(tasks, files, mailer), tasks, worker.NotifyOptionsFromConfig(cfg), log)
	sweeper := worker.NewSweeper(files, repo.NewRedisLock(rdb, "lock:expiry:sweep", cfg.SweepLockTTL), cfg.SweepInterval, log)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		log.Info("notify worker started")
		if err := notify.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notify worker stopped", "err", err)
			stop()
		}
	}()
	go func() {
		defer wg.Done()
		log.Info("expiry sweeper started", "interval", cfg.SweepInterval)
		_ = sweeper.Run(ctx)
	}()
	wg.Wait()
}

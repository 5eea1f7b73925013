package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cross/api/httpserver"
	"cross/api/ws"
	"cross/config"
	"cross/domain/book"
	"cross/domain/tradelog"
	"cross/domain/user"
	"cross/infra/cache"
	"cross/infra/kafka"
	"cross/infra/outbox"
	"cross/infra/sequence"
	"cross/jobs/broadcaster"
	"cross/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---------------- Domain ----------------

	b := book.New(sequence.New(0))
	trades := tradelog.NewLog()

	users := user.NewManager()
	if err := users.Load(cfg.Storage.UsersFile); err != nil {
		log.Fatal("user store load failed", zap.Error(err))
	}

	// ---------------- Restore ----------------

	if err := service.Boot(cfg.Snapshot.Dir, b, log); err != nil {
		log.Fatal("snapshot restore failed", zap.Error(err))
	}

	// ---------------- Sinks ----------------

	ob, err := outbox.Open(cfg.Storage.OutboxDir)
	if err != nil {
		log.Fatal("outbox init failed", zap.Error(err))
	}
	defer ob.Close()

	var ledger book.TradeRecorder
	if cfg.Kafka.Enabled {
		kl := kafka.NewLedger(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic)
		defer kl.Close()
		ledger = kl

		bc, err := broadcaster.New(ob, cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic, log)
		if err != nil {
			log.Fatal("broadcaster init failed", zap.Error(err))
		}
		defer bc.Close()
		bc.Start(ctx)
	}

	var topCache *cache.Cache
	if cfg.Redis.Enabled {
		topCache, err = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("redis init failed", zap.Error(err))
		}
		defer topCache.Close()
	}

	hub := ws.NewHub(log)

	// ---------------- Service ----------------

	svc := service.NewOrderService(b, ledger, trades, ob, hub, topCache, log)
	snapshotDone := svc.StartSnapshotJob(ctx, cfg.Snapshot.Dir, cfg.Snapshot.Interval)

	// ---------------- HTTP ----------------

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: httpserver.New(svc, users, hub, log).Router(),
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server exited", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	// wait for the final snapshot before exiting
	<-snapshotDone

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.UsersFile), 0755); err != nil {
		log.Error("user store dir create failed", zap.Error(err))
	} else if err := users.Save(cfg.Storage.UsersFile); err != nil {
		log.Error("user store save failed", zap.Error(err))
	}
}

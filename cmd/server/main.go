package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/papertrade/brokerage/internal/api"
	"github.com/papertrade/brokerage/internal/auth"
	"github.com/papertrade/brokerage/internal/config"
	"github.com/papertrade/brokerage/internal/database"
	"github.com/papertrade/brokerage/internal/kafka"
	"github.com/papertrade/brokerage/internal/ledger"
	"github.com/papertrade/brokerage/internal/quote"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	cfg := config.Load()

	if err := runMigrations(cfg.Database.ConnectionString()); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	quotes := quote.NewCache(
		quote.NewClient(cfg.Quote.BaseURL, cfg.Quote.APIToken),
		rdb, cfg.Quote.CacheTTL, log,
	)

	engine := ledger.NewEngine(db, quotes, producer, log)
	accounts := auth.NewService(db, 0)
	sessions := auth.NewSessionStore(rdb, cfg.Session.TTL)

	handler := api.NewHandler(engine, accounts, sessions, producer, cfg.Session.CookieName, log)
	router := api.SetupRoutes(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func runMigrations(connStr string) error {
	m, err := migrate.New("file://db/migrations", connStr)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

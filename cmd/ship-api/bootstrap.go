package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rapidroute/shipbox/config"
	"github.com/rapidroute/shipbox/internal/api/httpapi"
	"github.com/rapidroute/shipbox/internal/broker/kafka"
	"github.com/rapidroute/shipbox/internal/services/auth"
	"github.com/rapidroute/shipbox/internal/services/lifecycle"
	"github.com/rapidroute/shipbox/internal/storage/pgshipment"
)

type shipAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     shipAPIOpts
	handlers *httpapi.Handlers
	storage  *pgshipment.Storage
	consumer *kafka.Consumer
}

func mustBootstrapShipAPI() *shipAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.ShipBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ShipBox.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "ship-api"
	}
	topic := cfg.Kafka.DispatchResultTopic
	if topic == "" {
		topic = "notify.result"
	}
	maxAttempts := int32(cfg.ShipBox.WorkerMaxAttempts)
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	tokenTTL := time.Duration(cfg.ShipBox.TokenTTLMinutes) * time.Minute

	st := mustOpenPostgresWithRetry(connString(cfg), 60*time.Second)

	life := lifecycle.New(st)
	authSvc := auth.New(st, cfg.ShipBox.JWTSecret, tokenTTL)
	handlers := httpapi.NewHandlers(life, authSvc, cfg.ShipBox.BaseURL)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &shipAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: shipAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
			maxAttempts:   maxAttempts,
		},
		handlers: handlers,
		storage:  st,
		consumer: consumer,
	}
}

func connString(cfg *config.Config) string {
	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgshipment.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgshipment.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *shipAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.storage != nil {
		a.storage.Close()
	}
}

func (a *shipAPIApp) Run() error {
	return runShipAPI(a.ctx, a.opts, a.handlers, a.storage, a.consumer)
}

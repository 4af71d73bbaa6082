package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/rapidroute/shipbox/internal/api/httpapi"
	"github.com/rapidroute/shipbox/internal/broker/messages"
	"github.com/rapidroute/shipbox/internal/storage/pgshipment"
)

type shipAPIOpts struct {
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	maxAttempts int32

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type outboxSettler interface {
	SettleDispatch(ctx context.Context, upd pgshipment.DispatchSettle) error
}

func runShipAPI(ctx context.Context, opts shipAPIOpts, h *httpapi.Handlers, settler outboxSettler, consumer kafkaConsumer) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := httpapi.NewRouter(h)

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, opts.swaggerPath)
	})
	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(opts.swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	// Результаты доставки от воркера закрывают строки outbox.
	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		_ = consumer.Consume(ctx, func(_key, value []byte) error {
			var m messages.DispatchResult
			if err := json.Unmarshal(value, &m); err != nil {
				return err
			}
			return settler.SettleDispatch(ctx, pgshipment.DispatchSettle{
				OutboxID:      m.OutboxID,
				CheckedAt:     m.CheckedAt,
				NextAttemptAt: m.NextAttemptAt,
				Error:         m.Error,
				MaxAttempts:   opts.maxAttempts,
			})
		})
	}()

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

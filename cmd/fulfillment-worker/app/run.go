package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/OzanT1/ECommerce-Backend-System/configs"
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/cache"
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/email"
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/queue"
	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// Run wires the fulfillment worker and blocks until ctx is cancelled. The
// worker owns no order state: it consumes order-paid events, sends the
// confirmation email and lets the broker drive retries.
func Run(ctx context.Context, cfg configs.Config) error {
	logger := logging.Init("fulfillment-worker", "./logs/fulfillment-worker.log")
	logger.Info("fulfillment-worker: starting up")

	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()

	// Producer-side declaration is idempotent; declaring here too lets the
	// worker start before the API has ever published.
	if _, err := queue.DeclarePaidQueue(ch); err != nil {
		return err
	}

	// notification dedup (optional; degrades to plain at-least-once)
	var dedup usecase.NotificationDedup
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, duplicate emails possible", "err", err)
	} else {
		dedup = cache.NewRedisNotificationDedup(rdb, cfg.Email.DedupTTL)
	}

	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
	})
	handler := queue.NewOrderPaidHandler(sender, dedup)

	router := queue.NewRouter(ch,
		queue.WithPrefetch(cfg.Worker.Prefetch),
		queue.WithTimeout(cfg.Worker.CallTimeout),
		queue.WithMaxAttempts(cfg.Worker.MaxAttempts),
	)
	router.Register(queue.PaidQueueName, queue.JSONHandler[usecase.OrderPaidMsg]{HandleFunc: handler.HandlePaid})
	if err := router.Start(); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	// metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	logger.Info("worker started, listening for order-paid events",
		"queue", queue.PaidQueueName)

	<-ctx.Done()
	logger.Info("fulfillment-worker: shutting down")
	_ = srv.Shutdown(context.Background())
	return nil
}

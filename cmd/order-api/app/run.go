package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/OzanT1/ECommerce-Backend-System/configs"
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/cache"
	httpadapter "github.com/OzanT1/ECommerce-Backend-System/internal/adapter/http"
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/http/middleware"
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/kafka"
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/payment"
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/queue"
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/repo"
	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logger := logging.Init("order-api", cfg.App.LogFile)
	logger.Info("order-api: starting up")

	// database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("mysql ping: %w", err)
	}

	if err := runMigrations(db, cfg.MySQL.MigrationsDir); err != nil {
		return nil, nil, err
	}

	// redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	// rabbitmq
	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	producer, err := queue.NewRabbitProducer(ch)
	if err != nil {
		return nil, nil, err
	}

	// kafka status audit (optional)
	var audit usecase.StatusAuditor
	var closeKafka func()
	if len(cfg.Kafka.Brokers) > 0 {
		sp, err := kafka.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		statusProducer := kafka.NewStatusProducer(sp, cfg.Kafka.StatusTopic)
		audit = statusProducer
		closeKafka = func() { _ = statusProducer.Close() }
	}

	// payment gateway
	var gateway usecase.PaymentGateway
	if cfg.Payment.Provider == "stripe" {
		gateway = payment.NewStripeGateway(cfg.Payment.StripeKey)
	} else {
		gateway = payment.NewFakeGateway(cfg.Payment.FakeSucceeds)
	}

	taxRate, err := decimal.NewFromString(cfg.Pricing.TaxRate)
	if err != nil {
		return nil, nil, fmt.Errorf("pricing.tax_rate: %w", err)
	}
	shippingCost, err := decimal.NewFromString(cfg.Pricing.ShippingCost)
	if err != nil {
		return nil, nil, fmt.Errorf("pricing.shipping_cost: %w", err)
	}

	// wiring
	orderRepo := repo.NewMySQLOrderRepo(db)
	cartStore := cache.NewRedisCartStore(rdb, cfg.Cart.TTL)
	orderSvc := usecase.NewOrderService(orderRepo, cartStore, orderRepo, producer, audit, taxRate, shippingCost)

	oh := httpadapter.NewOrderHandler(orderSvc, gateway, cfg.Payment.Currency)
	chh := httpadapter.NewCartHandler(cartStore, orderRepo)
	authz := middleware.NewAuthz(cfg)
	router := httpadapter.NewRouter(oh, chh, authz)

	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
		if closeKafka != nil {
			closeKafka()
		}
		_ = rdb.Close()
		_ = db.Close()
	}

	return &App{Router: router}, cleanup, nil
}

func runMigrations(db *sql.DB, dir string) error {
	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "mysql", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

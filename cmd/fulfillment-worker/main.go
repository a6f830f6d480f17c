package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/OzanT1/ECommerce-Backend-System/cmd/fulfillment-worker/app"
	"github.com/OzanT1/ECommerce-Backend-System/configs"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

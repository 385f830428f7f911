package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-client/internal/stub"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/env"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "stub-backend"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "stub-backend",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	fee, err := cfg.Shipping.DefaultFee()
	if err != nil {
		logg.Error(context.Background(), "invalid default shipping fee", err)
		os.Exit(1)
	}

	server := stub.NewServer(stub.Options{
		Logger:             logg,
		AuthToken:          cfg.API.AuthToken,
		DefaultShippingFee: fee,
	})
	seedDemoCatalog(server)

	addr := ":" + env.Get("PORT", "8088")
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting stub backend")

	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "stub backend stopped unexpectedly", err)
		os.Exit(1)
	}
}

// seedDemoCatalog loads a small inventory so a fresh stub is usable without
// extra setup.
func seedDemoCatalog(server *stub.Server) {
	server.SeedProduct(stub.Product{
		ID:    1,
		Name:  "Classic Jeans",
		Price: decimal.NewFromInt(450),
		Sizes: []stub.SizeStock{
			{SizeID: 10, Label: "30", Stock: 12},
			{SizeID: 11, Label: "32", Stock: 8},
			{SizeID: 12, Label: "34", Stock: 3},
		},
	})
	server.SeedProduct(stub.Product{
		ID:    2,
		Name:  "Linen Shirt",
		Price: decimal.NewFromInt(320),
		Sizes: []stub.SizeStock{
			{SizeID: 20, Label: "M", Stock: 15},
			{SizeID: 21, Label: "L", Stock: 6},
		},
	})
	server.SeedShippingFee("Cairo", decimal.NewFromInt(40))
	server.SeedShippingFee("Giza", decimal.NewFromInt(45))
	server.SeedShippingFee("Alexandria", decimal.NewFromInt(60))
}

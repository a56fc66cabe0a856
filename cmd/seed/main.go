package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/ConnorDW-SA/marketplace/internal/seed"
	pkgconfig "github.com/ConnorDW-SA/marketplace/pkg/config"
	"github.com/ConnorDW-SA/marketplace/pkg/httpclient"
	"github.com/ConnorDW-SA/marketplace/pkg/logger"
)

func main() {
	var cfg seed.Config
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: "catalog-seed", Level: cfg.LogLevel, Format: "text"})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("catalog"),
		log,
	)

	products := seed.Generate(rand.New(rand.NewSource(cfg.RandomSeed)), cfg.Count, cfg.MaxReviews, cfg.ImageHost)
	log.Info("seeding catalog", slog.String("url", cfg.CatalogURL), slog.Int("products", len(products)))

	if _, err := seed.NewSeeder(client, cfg.CatalogURL, log).Run(ctx, products); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

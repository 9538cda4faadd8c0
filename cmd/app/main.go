package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"PairFlow/internal/di"
	"PairFlow/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s source=%s storage=%s pair=%s/%s",
		cfg.Environment, cfg.Source.Type, cfg.Storage.Type,
		cfg.Analytics.PairX, cfg.Analytics.PairY)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

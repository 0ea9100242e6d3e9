package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"chair-reservation-backend/config"
	"chair-reservation-backend/internal/app"
	"chair-reservation-backend/internal/clock"
	"chair-reservation-backend/internal/db"
)

func main() {
	logger := log.New(os.Stdout, "chaird ", log.LstdFlags)

	configPath := pflag.StringP("config", "c", "", "path to the YAML config file (default $CONFIG_PATH or ./config/config.yaml)")
	pflag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", path, err)
	}
	logger.Printf("configuration loaded successfully from %s", path)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, gormDB, clock.Real{})
	if err != nil {
		logger.Fatalf("failed to build service: %v", err)
	}
	defer a.Close()
	a.Start(ctx)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: a.Router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutS)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}
	logger.Println("Server gracefully stopped")
}

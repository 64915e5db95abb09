// Package main is the entry point for the nodemap service: it loads the
// environment, opens the database, and serves the HTTP API until SIGINT or
// SIGTERM.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/nodemap_service/internal/app/runtime"
	"github.com/R3E-Network/nodemap_service/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := runtime.NewApplication(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise service: %v", err)
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		log.Printf("Server error: %v", runErr)
	}

	// Shutdown gets a fresh context; ctx is already cancelled on signal.
	if err := application.Shutdown(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Server exited with error")
	}
}

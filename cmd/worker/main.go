package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"school-admin-be/internal/bootstrap"
	"school-admin-be/internal/config"
	"school-admin-be/pkg/database"
)

// Standalone delivery worker. Runs the same pool cmd/rest can embed, as its
// own process so API deploys and worker deploys scale independently.
func main() {
	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Starting Delivery Worker Pool...")
	if err := container.DeliveryService.Run(ctx); err != nil {
		log.Printf("Delivery Worker Error: %v", err)
	}
	log.Println("Delivery Worker Pool stopped")
}

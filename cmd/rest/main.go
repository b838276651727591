package main

import (
	"context"
	"log"

	"school-admin-be/internal/bootstrap"
	"school-admin-be/internal/config"
	"school-admin-be/internal/server"
	"school-admin-be/internal/tracer"
	"school-admin-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	// 4. Start Background Services
	// Production runs the worker pool as its own process (cmd/worker);
	// embedding it here keeps single-binary deployments simple.
	if cfg.App.WorkerEmbedded {
		go func() {
			log.Println("Background: Starting Delivery Worker Pool...")
			if err := container.DeliveryService.Run(context.Background()); err != nil {
				log.Printf("Background Delivery Worker Error: %v", err)
			}
		}()
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}

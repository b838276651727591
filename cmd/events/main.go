package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"school-admin-be/internal/config"
	"school-admin-be/pkg/events"
	pktNats "school-admin-be/pkg/nats"
)

// Tails delivery-outcome events from the bus. Ops tool for watching what the
// worker pool is doing without grepping its log file.
func main() {
	cfg := config.Load()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	err = sub.Subscribe("school.notifications.>", "delivery-tail", func(_ context.Context, event events.Event) error {
		log.Printf("[%s] %v", event.EventType(), event.Payload())
		return nil
	})
	if err != nil {
		log.Fatalf("Error: Failed to subscribe: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

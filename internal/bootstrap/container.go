package bootstrap

import (
	"context"
	"log"
	"time"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"school-admin-be/internal/config"
	"school-admin-be/internal/controller"
	"school-admin-be/internal/pkg/logger"
	"school-admin-be/internal/repository/implementation"
	"school-admin-be/internal/service"
	pktNats "school-admin-be/pkg/nats"
	"school-admin-be/pkg/push"
	"school-admin-be/pkg/queue"
)

type Container struct {
	// Controllers
	NotificationController controller.INotificationController

	// Background Services (Exposed for main.go to run)
	DeliveryService *service.DeliveryService

	Logger logger.ILogger

	dispatch *queue.RedisQueue
	natsPub  *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// The delivery worker logs to its own file so a provider outage flooding
	// retries does not drown the request log.
	dispatchLogger := logger.NewIsolatedLogger(cfg.App.DispatchLogPath)

	// Outage warnings are throttled; one line per interval, not one per request.
	degradedLogger := logger.NewThrottled(sysLogger, 30*time.Second)

	// 2. Infrastructure
	dispatch := queue.NewRedisQueue(queue.Options{
		RedisURL:           cfg.Queue.RedisURL,
		MaxAttempts:        cfg.Queue.MaxAttempts,
		BackoffBase:        cfg.Queue.BackoffBase,
		CompletedRetention: cfg.Queue.CompletedRetention,
		EnqueueTimeout:     cfg.Queue.EnqueueTimeout,
		EnqueueRetries:     cfg.Queue.EnqueueRetries,
		VisibilityTimeout:  cfg.Queue.VisibilityTimeout,
	}, sysLogger)

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	var eventPub service.EventPublisher
	if natsPub != nil {
		eventPub = natsPub
	}

	// 3. Providers
	var fcmClient push.MessagingClient
	if cfg.Providers.FirebaseCredentials != "" {
		app, err := firebase.NewApp(context.Background(), &firebase.Config{
			ProjectID: cfg.Providers.FirebaseProjectID,
		}, option.WithCredentialsFile(cfg.Providers.FirebaseCredentials))
		if err != nil {
			log.Printf("[WARN] Failed to initialize Firebase app: %v", err)
		} else if client, err := app.Messaging(context.Background()); err != nil {
			log.Printf("[WARN] Failed to initialize FCM client: %v", err)
		} else {
			fcmClient = client
		}
	}
	providers := []push.Provider{
		push.NewFCMProvider(fcmClient, dispatchLogger),
		push.NewOneSignalProvider(
			cfg.Providers.OneSignalAppID,
			cfg.Providers.OneSignalAPIKey,
			cfg.Providers.OneSignalBaseURL,
			dispatchLogger,
		),
	}

	// 4. Repositories
	directoryRepo := implementation.NewDirectoryRepository(db)
	deviceTokenRepo := implementation.NewDeviceTokenRepository(db)

	// 5. Services
	recipientService := service.NewRecipientService(directoryRepo, sysLogger)
	notificationService := service.NewNotificationService(
		recipientService,
		deviceTokenRepo,
		dispatch,
		sysLogger,
		degradedLogger,
	)
	deliveryService := service.NewDeliveryService(
		dispatch,
		deviceTokenRepo,
		providers,
		eventPub,
		dispatchLogger,
		cfg.Queue.Concurrency,
		cfg.Queue.PromoteInterval,
	)

	// 6. Controllers
	notificationController := controller.NewNotificationController(notificationService)

	return &Container{
		NotificationController: notificationController,
		DeliveryService:        deliveryService,
		Logger:                 sysLogger,
		dispatch:               dispatch,
		natsPub:                natsPub,
	}
}

// Close releases infrastructure connections. Call after the server and worker
// pool have stopped.
func (c *Container) Close() {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.dispatch != nil {
		if err := c.dispatch.Close(); err != nil {
			log.Printf("[WARN] Failed to close queue client: %v", err)
		}
	}
	c.Logger.Sync()
}

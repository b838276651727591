package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Queue     QueueConfig
	Providers ProviderConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	DispatchLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	// WorkerEmbedded runs the delivery worker pool inside the API process.
	// Production runs cmd/worker separately and leaves this off.
	WorkerEmbedded bool
}

type DatabaseConfig struct {
	Connection string
}

type QueueConfig struct {
	RedisURL           string
	Concurrency        int
	MaxAttempts        int
	BackoffBase        time.Duration
	CompletedRetention time.Duration
	EnqueueTimeout     time.Duration
	EnqueueRetries     int
	PromoteInterval    time.Duration
	VisibilityTimeout  time.Duration
}

type ProviderConfig struct {
	OneSignalAppID      string
	OneSignalAPIKey     string
	OneSignalBaseURL    string
	FirebaseCredentials string
	FirebaseProjectID   string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			DispatchLogPath:    getEnv("DISPATCH_LOG_PATH", "logs/dispatch.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			WorkerEmbedded:     getEnvAsBool("WORKER_EMBEDDED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Queue: QueueConfig{
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			Concurrency:        getEnvAsInt("QUEUE_CONCURRENCY", 5),
			MaxAttempts:        getEnvAsInt("QUEUE_MAX_ATTEMPTS", 3),
			BackoffBase:        getEnvAsDuration("QUEUE_BACKOFF_BASE", 5*time.Second),
			CompletedRetention: getEnvAsDuration("QUEUE_COMPLETED_RETENTION", 24*time.Hour),
			EnqueueTimeout:     getEnvAsDuration("QUEUE_ENQUEUE_TIMEOUT", 500*time.Millisecond),
			EnqueueRetries:     getEnvAsInt("QUEUE_ENQUEUE_RETRIES", 3),
			PromoteInterval:    getEnvAsDuration("QUEUE_PROMOTE_INTERVAL", time.Second),
			VisibilityTimeout:  getEnvAsDuration("QUEUE_VISIBILITY_TIMEOUT", time.Minute),
		},
		Providers: ProviderConfig{
			OneSignalAppID:      getEnv("ONESIGNAL_APP_ID", ""),
			OneSignalAPIKey:     getEnv("ONESIGNAL_API_KEY", ""),
			OneSignalBaseURL:    getEnv("ONESIGNAL_BASE_URL", "https://onesignal.com/api/v1"),
			FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

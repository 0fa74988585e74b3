package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Catalog  CatalogConfig
	Observ   ObservabilityConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicRequests string
	ConsumerGroup string
}

type CatalogConfig struct {
	BaseURL         string
	CacheTTLSeconds int
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type WorkerConfig struct {
	ProcessTimeoutSeconds int
	LockTTLSeconds        int
}

// Load reads configuration from the environment. The database URL, broker
// endpoints and consumer group carry no defaults: a missing value is a fatal
// startup error, not a degraded runtime mode.
func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	processTimeout, _ := strconv.Atoi(getEnv("PROCESS_TIMEOUT_SECONDS", "10"))
	lockTTL, _ := strconv.Atoi(getEnv("LOCK_TTL_SECONDS", "30"))
	cacheTTL, _ := strconv.Atoi(getEnv("CATALOG_CACHE_TTL_SECONDS", "300"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: mustEnv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(mustEnv("KAFKA_BROKERS"), ","),
			TopicRequests: getEnv("KAFKA_TOPIC_RESERVATIONS", "reservation-requests"),
			ConsumerGroup: mustEnv("KAFKA_CONSUMER_GROUP"),
		},
		Catalog: CatalogConfig{
			BaseURL:         getEnv("CATALOG_URL", "http://localhost:8001"),
			CacheTTLSeconds: cacheTTL,
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Worker: WorkerConfig{
			ProcessTimeoutSeconds: processTimeout,
			LockTTLSeconds:        lockTTL,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, group=%s",
		cfg.Server.Env, cfg.Server.Port, cfg.Kafka.ConsumerGroup)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("Required environment variable %s is not set", key)
	}
	return val
}

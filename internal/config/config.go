// config.go
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port                string
	MongoURI            string
	MongoDBName         string
	AuthURL             string
	RabbitURL           string
	OrderPlacedExchange string
	OrderPlacedQueue    string
	StatusExchange      string
	StoreDriver         string
	LogLevel            string
	RequestTimeout      time.Duration
}

// Load lee el .env (si existe) y después las variables de entorno.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:         getEnv("MONGO_DB_NAME", "shop"),
		AuthURL:             getEnv("AUTH_URL", "http://localhost:3000"),
		RabbitURL:           getEnv("RABBIT_URL", ""),
		OrderPlacedExchange: getEnv("ORDER_PLACED_EXCHANGE", "order_placed"),
		OrderPlacedQueue:    getEnv("ORDER_PLACED_QUEUE", "order_lifecycle_orders"),
		StatusExchange:      getEnv("ORDER_STATUS_EXCHANGE", "order_status_changed"),
		StoreDriver:         getEnv("STORE_DRIVER", StoreMongo),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ServiceBilling = "billing"
	ServiceFlights = "flights"
	ServiceHotels  = "hotels"
	ServiceCars    = "cars"
	ServiceUsers   = "users"
	ServiceAdmin   = "admin"
)

var AllServices = []string{
	ServiceBilling,
	ServiceFlights,
	ServiceHotels,
	ServiceCars,
	ServiceUsers,
	ServiceAdmin,
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	BusMemory = "memory"
	BusRedis  = "redis"
	BusKafka  = "kafka"
)

type Config struct {
	HTTPAddr string
	Services []string
	LogLevel string

	WatermillDebug bool

	StorageDriver string
	PostgresURL   string
	RedisAddr     string

	BusDriver           string
	KafkaBrokers        []string
	BookingsTopic       string
	DLQTopic            string
	ConsumerGroupPrefix string

	RetryMax             int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	ReservationTTL           time.Duration
	ReservationSweepInterval time.Duration

	UserServiceURL         string
	BillingServiceURL      string
	NotificationServiceURL string
	HTTPClientTimeout      time.Duration

	OTLPEndpoint   string
	JaegerEndpoint string
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	cfg := FromEnv()
	return cfg, cfg.Validate()
}

// FromEnv is Load without validation, for callers that adjust the result.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Services: ParseServices(getEnv("SERVICES", "all")),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		WatermillDebug: getBoolEnv("WATERMILL_DEBUG", false),

		StorageDriver: getEnv("STORAGE_DRIVER", StoragePostgres),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),

		BusDriver:           getEnv("BUS_DRIVER", BusKafka),
		KafkaBrokers:        splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		BookingsTopic:       getEnv("BOOKINGS_TOPIC", "bookings"),
		DLQTopic:            getEnv("DLQ_TOPIC", "bookings.dlq"),
		ConsumerGroupPrefix: getEnv("CONSUMER_GROUP_PREFIX", "svc"),

		RetryMax:             getIntEnv("RETRY_MAX", 5),
		RetryInitialInterval: getDurationEnv("RETRY_INITIAL_INTERVAL", 100*time.Millisecond),
		RetryMaxInterval:     getDurationEnv("RETRY_MAX_INTERVAL", time.Second),

		ReservationTTL:           getDurationEnv("RESERVATION_TTL", 15*time.Minute),
		ReservationSweepInterval: getDurationEnv("RESERVATION_SWEEP_INTERVAL", 0),

		UserServiceURL:         getEnv("USER_SERVICE_URL", "http://localhost:8080"),
		BillingServiceURL:      getEnv("BILLING_SERVICE_URL", "http://localhost:8080"),
		NotificationServiceURL: os.Getenv("NOTIFICATION_SERVICE_URL"),
		HTTPClientTimeout:      getDurationEnv("HTTP_CLIENT_TIMEOUT", 5*time.Second),

		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
	}
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	switch c.BusDriver {
	case BusMemory:
	case BusRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for bus driver %q", c.BusDriver)
		}
	case BusKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for bus driver %q", c.BusDriver)
		}
	default:
		return fmt.Errorf("unknown bus driver %q", c.BusDriver)
	}

	for _, s := range c.Services {
		if !isKnownService(s) {
			return fmt.Errorf("unknown service %q", s)
		}
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("no services enabled")
	}

	if c.ReservationTTL <= 0 {
		return fmt.Errorf("RESERVATION_TTL must be positive")
	}

	return nil
}

func (c Config) Enabled(service string) bool {
	for _, s := range c.Services {
		if s == service {
			return true
		}
	}
	return false
}

// ParseServices splits a comma list of services. "all" enables every one.
func ParseServices(value string) []string {
	if strings.TrimSpace(value) == "all" {
		return append([]string(nil), AllServices...)
	}
	return splitList(value)
}

func isKnownService(s string) bool {
	for _, known := range AllServices {
		if s == known {
			return true
		}
	}
	return false
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("BUS_DRIVER", "memory")
	t.Setenv("SERVICES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, AllServices, cfg.Services)
	assert.Equal(t, "bookings", cfg.BookingsTopic)
	assert.Equal(t, "bookings.dlq", cfg.DLQTopic)
	assert.Equal(t, 15*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, time.Duration(0), cfg.ReservationSweepInterval)
	assert.Equal(t, 5*time.Second, cfg.HTTPClientTimeout)
}

func TestLoad_overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("BUS_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("SERVICES", "billing, users")
	t.Setenv("RESERVATION_SWEEP_INTERVAL", "30s")
	t.Setenv("RETRY_MAX", "not-a-number")
	t.Setenv("WATERMILL_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"billing", "users"}, cfg.Services)
	assert.True(t, cfg.Enabled(ServiceBilling))
	assert.False(t, cfg.Enabled(ServiceFlights))
	assert.Equal(t, 30*time.Second, cfg.ReservationSweepInterval)
	assert.Equal(t, 5, cfg.RetryMax)
	assert.True(t, cfg.WatermillDebug)
}

func TestValidate(t *testing.T) {
	base := Config{
		Services:       []string{ServiceFlights},
		StorageDriver:  StorageMemory,
		BusDriver:      BusMemory,
		ReservationTTL: time.Minute,
	}
	require.NoError(t, base.Validate())

	t.Run("postgres without url", func(t *testing.T) {
		cfg := base
		cfg.StorageDriver = StoragePostgres
		assert.ErrorContains(t, cfg.Validate(), "POSTGRES_URL")
	})

	t.Run("redis bus without addr", func(t *testing.T) {
		cfg := base
		cfg.BusDriver = BusRedis
		assert.ErrorContains(t, cfg.Validate(), "REDIS_ADDR")
	})

	t.Run("unknown service", func(t *testing.T) {
		cfg := base
		cfg.Services = []string{"trains"}
		assert.ErrorContains(t, cfg.Validate(), "unknown service")
	})
}

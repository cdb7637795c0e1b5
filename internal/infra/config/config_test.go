package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, BackendMemory, cfg.LedgerBackend)
	assert.Equal(t, 1, cfg.DefaultSlotCapacity)
	assert.Equal(t, 3, cfg.TransitionAttempts)
	assert.Equal(t, 14*24*time.Hour, cfg.DisputeWindow)
	assert.Equal(t, "AOA", cfg.DefaultCurrency)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.S3Enabled())
}

func TestMongoRequiresURI(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UsesMongo())
	assert.Equal(t, BackendMongo, cfg.LedgerBackend, "ledger follows storage unless set")
}

func TestInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"capacity": {"DEFAULT_SLOT_CAPACITY", "0"},
		"attempts": {"TRANSITION_ATTEMPTS", "many"},
		"no saves": {"TRANSITION_ATTEMPTS", "0"},
		"window":   {"DISPUTE_WINDOW", "two weeks"},
		"backend":  {"LEDGER_BACKEND", "cassandra"},
		"timezone": {"BUSINESS_TIMEZONE", "Mars/Olympus"},
		"ssl":      {"S3_USE_SSL", "maybe"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("APP_ENV", "dev")
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestProductionNeedsSecret(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

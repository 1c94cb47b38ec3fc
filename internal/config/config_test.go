package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "transfer-service", cfg.Service.Name)
	assert.Equal(t, ":8010", cfg.Server.Addr)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "wms_transfers", cfg.MongoDB.Database)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "wms-transfer-service", cfg.Kafka.ConsumerGroup)
	assert.Equal(t, 1*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, 7*24*time.Hour, cfg.Outbox.RetainPublished)
	assert.True(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("WMS_SERVER_ADDR", ":9999")
	t.Setenv("WMS_MONGODB_DATABASE", "transfers_test")
	t.Setenv("WMS_KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("WMS_OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("WMS_TRACING_ENABLED", "false")
	t.Setenv("WMS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "transfers_test", cfg.MongoDB.Database)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_AuthRequiresSecret(t *testing.T) {
	t.Setenv("WMS_AUTH_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing mongo uri",
			mutate:  func(c *Config) { c.MongoDB.URI = "" },
			wantErr: "mongodb.uri",
		},
		{
			name:    "missing mongo database",
			mutate:  func(c *Config) { c.MongoDB.Database = "" },
			wantErr: "mongodb.database",
		},
		{
			name:    "no brokers",
			mutate:  func(c *Config) { c.Kafka.Brokers = nil },
			wantErr: "kafka.brokers",
		},
		{
			name:    "non-positive outbox batch",
			mutate:  func(c *Config) { c.Outbox.BatchSize = 0 },
			wantErr: "outbox.batch_size",
		},
		{
			name: "auth enabled with secret",
			mutate: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.JWTSecret = "secret"
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestKafkaClientConfig_KeepsTuningDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Kafka.Brokers = []string{"kafka-0:9092"}
	cfg.Kafka.ConsumerGroup = "custom-group"

	kc := cfg.KafkaClientConfig()

	assert.Equal(t, []string{"kafka-0:9092"}, kc.Brokers)
	assert.Equal(t, "custom-group", kc.ConsumerGroup)
	assert.Equal(t, 100, kc.BatchSize)
	assert.Equal(t, -1, kc.RequiredAcks)
	assert.Equal(t, 10*time.Millisecond, kc.BatchTimeout)
}

func TestMongoClientConfig(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.MongoDB.Username = "app"
	cfg.MongoDB.Password = "pw"
	cfg.MongoDB.ReplicaSet = "rs0"

	mc := cfg.MongoClientConfig()

	assert.Equal(t, cfg.MongoDB.URI, mc.URI)
	assert.Equal(t, cfg.MongoDB.Database, mc.Database)
	assert.Equal(t, "app", mc.Username)
	assert.Equal(t, "rs0", mc.ReplicaSet)
	assert.Equal(t, uint64(100), mc.MaxPoolSize)
}

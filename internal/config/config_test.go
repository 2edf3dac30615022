package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/sales-desk/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "sales-documents", cfg.DynamoDBTable)
	assert.Equal(t, "sales-changes", cfg.KafkaTopic)
	assert.Equal(t, 12*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, "sequential", cfg.InvoiceNumbering)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "firestore")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("ACCESS_TOKEN_TTL", "forever")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoadServer_Secret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr string
	}{
		{name: "missing", secret: "", wantErr: "required"},
		{name: "short", secret: "too-short", wantErr: "at least 32"},
		{name: "valid", secret: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE_BACKEND", "")
			t.Setenv("JWT_SECRET", tt.secret)

			cfg, err := LoadServer()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testSecret, cfg.JWTSecret)
		})
	}
}

func TestConfig_Seeds(t *testing.T) {
	cfg := &Config{
		SeedAdminName: "Mona", SeedAdminPassword: "admin-password",
		SeedRepName: "Omar", SeedRepPassword: "representative1",
	}

	seeds := cfg.Seeds()

	require.Len(t, seeds, 2)
	assert.Equal(t, domain.RoleAdmin, seeds[0].Role)
	assert.Equal(t, "Mona", seeds[0].Name)
	assert.Equal(t, domain.RoleRepresentative, seeds[1].Role)
	for _, s := range seeds {
		assert.GreaterOrEqual(t, len(s.Password), 8)
	}
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "json info", level: "info", format: "json"},
		{name: "console debug", level: "debug", format: "console"},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level, LogFormat: tt.format}

			log, err := cfg.NewLogger()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, _ := zapcore.ParseLevel(strings.ToLower(tt.level))
			assert.True(t, log.Core().Enabled(want))
			assert.False(t, log.Core().Enabled(want-1))
		})
	}
}

func TestConfig_OpenStore_Memory(t *testing.T) {
	cfg := &Config{StoreBackend: BackendMemory}

	s, err := cfg.OpenStore(context.Background(), nil, zap.NewNop())

	require.NoError(t, err)
	defer s.Close()
	_, err = s.Products().Create(context.Background(), domain.Product{SKU: "P1", Name: "Lamp"})
	assert.NoError(t, err)
}

func TestConfig_OpenStore_Unknown(t *testing.T) {
	cfg := &Config{StoreBackend: "firestore"}

	_, err := cfg.OpenStore(context.Background(), nil, zap.NewNop())

	assert.Error(t, err)
}

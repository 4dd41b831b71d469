package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "chat-api", cfg.ServiceName)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, BackendMongo, cfg.DBBackend)
	assert.Equal(t, UploadProviderImageKit, cfg.UploadProvider)
	assert.Equal(t, 30*time.Minute, cfg.UploadTokenTTL)
	assert.Equal(t, "chat", cfg.MongoDatabaseName())
	assert.False(t, cfg.ReconcileEnabled())
}

func TestLoadRequiresJWKSWhenAuthEnabled(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_JWKS_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWKS_URL")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("DB_BACKEND", "cassandra")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadPostgresNeedsDSN(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("DB_BACKEND", "Postgres")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("DB_POSTGRESQL_WRITE_DSN", "postgres://localhost:5432/chat?sslmode=disable")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.DBBackend)
}

func TestMongoDatabaseName(t *testing.T) {
	cfg := &Config{MongoURI: "mongodb+srv://user:pw@cluster0.example.net/lamadb?retryWrites=true"}
	assert.Equal(t, "lamadb", cfg.MongoDatabaseName())

	cfg.MongoDatabase = "override"
	assert.Equal(t, "override", cfg.MongoDatabaseName())
}

func TestReconcileDisabledWithTransactions(t *testing.T) {
	cfg := &Config{ReconcileInterval: time.Minute}
	assert.True(t, cfg.ReconcileEnabled())

	cfg.DBTransactions = true
	assert.False(t, cfg.ReconcileEnabled())
}

func TestClientURLTrailingSlashTrimmed(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("CLIENT_URL", "https://chat.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com", cfg.ClientURL)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  namespace: stackit-test
  port: 9090
auth:
  jwt_secret: s3cret
  admin_emails: ["root@example.com"]
ledger:
  max_retries: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "stackit-test", cfg.App.Namespace)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, []string{"root@example.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Live.Broker)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: from-file
`)
	t.Setenv("STACKIT_AUTH_JWT_SECRET", "from-env")
	t.Setenv("STACKIT_APP_NAMESPACE", "ns-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "ns-env", cfg.App.Namespace)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		_, err := Load(writeConfig(t, "app:\n  port: 1\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt_secret")
	})

	t.Run("unknown broker", func(t *testing.T) {
		_, err := Load(writeConfig(t, "auth:\n  jwt_secret: x\nlive:\n  broker: carrier-pigeon\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "live.broker")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5433 sslmode=disable TimeZone=UTC", d.PostgresDSN())

	d.DSN = "postgres://override"
	assert.Equal(t, "postgres://override", d.PostgresDSN())
}

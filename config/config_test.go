package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "tracker")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("S3_ENDPOINT", "https://acc.r2.cloudflarestorage.com")
	t.Setenv("S3_ACCESS_KEY", "key")
	t.Setenv("S3_SECRET_KEY", "secret")
	t.Setenv("API_SECRET_KEY", "key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4242", cfg.HTTPPort)
	assert.Equal(t, "s3", cfg.BlobDriver)
	assert.Equal(t, "paper-reviews", cfg.S3Bucket)
	assert.Equal(t, "@every 1h", cfg.SweepSchedule)
	assert.Equal(t, 30*time.Second, cfg.SweepDebounce)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes())
	assert.True(t, cfg.AuthEnabled())
	assert.False(t, cfg.AuthDisabled)
	assert.Equal(t, "host=localhost user=tracker password=secret dbname=papers port=5432 sslmode=disable", cfg.DSN())
}

func TestDatabaseURLWins(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db/papers")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/papers", cfg.DSN())
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	// t.Setenv stellt den Wert nach dem Test wieder her
	require.NoError(t, os.Unsetenv("S3_ENDPOINT"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresAuth(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("API_SECRET_KEY"))

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AUTH_DISABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AuthDisabled)
	assert.False(t, cfg.AuthEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{BlobDriver: "minio", DBUser: "u", APISecretKey: "k"}, false},
		{"auth disabled", Config{BlobDriver: "s3", DBUser: "u", AuthDisabled: true}, false},
		{"no auth", Config{BlobDriver: "s3", DBUser: "u"}, true},
		{"unknown driver", Config{BlobDriver: "gcs", DBUser: "u", APISecretKey: "k"}, true},
		{"no database", Config{BlobDriver: "s3", APISecretKey: "k"}, true},
		{"jwt without password", Config{BlobDriver: "s3", DBUser: "u", JWTSecret: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// DATABASE_URL hat Vorrang vor den einzelnen DB_*-Werten
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      int    `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"papers"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// Objektspeicher für Review-Dateien: "s3" (R2, Strato, AWS) oder "minio"
	BlobDriver   string        `envconfig:"BLOB_DRIVER" default:"s3"`
	S3Endpoint   string        `envconfig:"S3_ENDPOINT" required:"true"`
	S3Region     string        `envconfig:"S3_REGION" default:"auto"`
	S3AccessKey  string        `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey  string        `envconfig:"S3_SECRET_KEY" required:"true"`
	S3Bucket     string        `envconfig:"S3_BUCKET" default:"paper-reviews"`
	S3UseSSL     bool          `envconfig:"S3_USE_SSL" default:"true"`
	PresignTTL   time.Duration `envconfig:"PRESIGN_TTL" default:"15m"`
	MaxUploadMiB int64         `envconfig:"MAX_UPLOAD_MIB" default:"20"`

	SweepSchedule string        `envconfig:"SWEEP_SCHEDULE" default:"@every 1h"`
	SweepDebounce time.Duration `envconfig:"SWEEP_DEBOUNCE" default:"30s"`

	// Auth: mindestens API_SECRET_KEY oder JWT_SECRET, außer AUTH_DISABLED=true (nur lokal)
	AuthDisabled     bool          `envconfig:"AUTH_DISABLED"`
	APISecretKey     string        `envconfig:"API_SECRET_KEY"`
	JWTSecret        string        `envconfig:"JWT_SECRET"`
	TokenTTL         time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	AuthUsername     string        `envconfig:"AUTH_USERNAME" default:"admin"`
	AuthPasswordHash string        `envconfig:"AUTH_PASSWORD_HASH"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// AuthEnabled meldet, ob überhaupt ein Verfahren konfiguriert ist.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != "" || c.APISecretKey != ""
}

// MaxUploadBytes ist die Obergrenze für Review-Dateien.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMiB << 20
}

// Validate prüft Kombinationen, die envconfig nicht ausdrücken kann.
func (c *Config) Validate() error {
	switch c.BlobDriver {
	case "s3", "minio":
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.BlobDriver)
	}
	if c.DatabaseURL == "" && c.DBUser == "" {
		return fmt.Errorf("either DATABASE_URL or DB_USER must be set")
	}
	if !c.AuthEnabled() && !c.AuthDisabled {
		return fmt.Errorf("set API_SECRET_KEY or JWT_SECRET, or AUTH_DISABLED=true for local use")
	}
	if c.JWTSecret != "" && c.AuthPasswordHash == "" {
		return fmt.Errorf("AUTH_PASSWORD_HASH is required when JWT_SECRET is set")
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

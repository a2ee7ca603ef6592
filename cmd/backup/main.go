// Command backup sichert die Paper-Datenbank per pg_dump gzip-komprimiert in den Objektspeicher
// und löscht ältere Sicherungen über KEEP_BACKUPS hinaus.
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"paper-tracker/config"
	"paper-tracker/storage"
)

const backupPrefix = "backups/"

type backupConfig struct {
	// leer heißt: derselbe Bucket wie die Review-Dateien
	Bucket      string        `envconfig:"BACKUP_S3_BUCKET"`
	KeepBackups int           `envconfig:"KEEP_BACKUPS" default:"4"`
	Timeout     time.Duration `envconfig:"BACKUP_TIMEOUT" default:"10m"`
}

// backupAPI ist der Teil des S3-Clients, den Upload und Rotation brauchen.
type backupAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Backup failed", zap.Error(err))
	}
	logger.Info("Backup finished")
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var bcfg backupConfig
	if err := envconfig.Process("", &bcfg); err != nil {
		return fmt.Errorf("load backup config: %w", err)
	}
	if bcfg.Bucket == "" {
		bcfg.Bucket = cfg.S3Bucket
	}

	ctx, cancel := context.WithTimeout(context.Background(), bcfg.Timeout)
	defer cancel()

	dump, err := createDump(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pg_dump: %w", err)
	}

	client, err := storage.NewS3Client(cfg)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}

	key := backupKey(time.Now())
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bcfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(dump),
		ContentType: aws.String("application/gzip"),
	}); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	logger.Info("Backup uploaded", zap.String("bucket", bcfg.Bucket), zap.String("key", key), zap.Int("bytes", len(dump)))

	return rotateBackups(ctx, client, logger, bcfg.Bucket, bcfg.KeepBackups)
}

func backupKey(now time.Time) string {
	return fmt.Sprintf("%sbackup-%s.sql.gz", backupPrefix, now.UTC().Format("2006-01-02T15-04-05Z"))
}

// dumpArgs baut die pg_dump-Argumente. DATABASE_URL geht direkt als --dbname durch.
func dumpArgs(cfg *config.Config) (args []string, env []string) {
	if cfg.DatabaseURL != "" {
		return []string{"--dbname=" + cfg.DatabaseURL, "-w"}, nil
	}
	args = []string{
		"-h", cfg.DBHost,
		"-p", strconv.Itoa(cfg.DBPort),
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w", // Passwort kommt über PGPASSWORD
	}
	return args, []string{"PGPASSWORD=" + cfg.DBPassword, "PGSSLMODE=" + cfg.DBSSLMode}
}

func createDump(ctx context.Context, cfg *config.Config) ([]byte, error) {
	args, env := dumpArgs(cfg)
	cmd := exec.CommandContext(ctx, "pg_dump", args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := io.Copy(gz, stdout); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// expiredBackups liefert die Schlüssel jenseits der keep neuesten Sicherungen.
func expiredBackups(objects []types.Object, keep int) []string {
	if len(objects) <= keep {
		return nil
	}
	sorted := append([]types.Object(nil), objects...)
	sort.Slice(sorted, func(i, j int) bool {
		return aws.ToTime(sorted[i].LastModified).After(aws.ToTime(sorted[j].LastModified))
	})
	var keys []string
	for _, obj := range sorted[keep:] {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys
}

func rotateBackups(ctx context.Context, client backupAPI, logger *zap.Logger, bucket string, keep int) error {
	var objects []types.Object
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(backupPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list backups: %w", err)
		}
		objects = append(objects, page.Contents...)
	}

	expired := expiredBackups(objects, keep)
	if len(expired) == 0 {
		logger.Info("No rotation needed", zap.Int("backups", len(objects)), zap.Int("keep", keep))
		return nil
	}

	var errs error
	for _, key := range expired {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			logger.Warn("Failed to delete old backup", zap.String("key", key), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		logger.Info("Deleted old backup", zap.String("key", key))
	}
	return errs
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig is the flat environment mapping read by cleanenv.
//
//	PORT         - Server port (default: "8080")
//	ENVIRONMENT  - Runtime environment (default: "development")
//	DATABASE_URL - "memory" or a postgres:// connection string
//	DB_SCHEMA    - Optional Postgres schema
//	STORAGE_URL  - One of:
//	               "memory://"            in-memory storage (default)
//	               "file:///path/to/data" filesystem storage
//	               "s3://bucket"          S3 storage (AWS_* env applies)
//	JWT_SECRET   - HMAC secret for issued tokens
//	TOKEN_TTL    - Token lifetime (default: 24h)
type envConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	DBSchema    string `env:"DB_SCHEMA"`

	StorageURL string `env:"STORAGE_URL" env-default:"memory://"`

	AWSRegion          string `env:"AWS_REGION" env-default:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint        string `env:"AWS_ENDPOINT_URL"`
	AWSUsePathStyle    bool   `env:"AWS_USE_PATH_STYLE" env-default:"false"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" env-default:"24h"`

	AssetURLPrefix  string        `env:"ASSET_URL_PREFIX" env-default:"/api/assets"`
	ThumbnailMaxPx  uint          `env:"THUMBNAIL_MAX_PX" env-default:"320"`
	BlobCallTimeout time.Duration `env:"BLOB_CALL_TIMEOUT" env-default:"10s"`
}

// WithEnv applies environment variable overrides.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		c.Port = env.Port
		c.Environment = env.Environment
		c.DBSchema = env.DBSchema
		if env.JWTSecret != "" {
			c.JWTSecret = env.JWTSecret
		}
		c.TokenTTL = env.TokenTTL
		c.AssetURLPrefix = env.AssetURLPrefix
		c.ThumbnailMaxPx = env.ThumbnailMaxPx
		c.BlobCallTimeout = env.BlobCallTimeout

		if err := applyDatabaseEnv(env, c); err != nil {
			return err
		}
		return applyStorageEnv(env, c)
	}
}

// applyDatabaseEnv maps DATABASE_URL into database settings
func applyDatabaseEnv(env envConfig, c *ServerConfig) error {
	dbURL := env.DatabaseURL

	if dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}

	if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}

	return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
}

// applyStorageEnv maps STORAGE_URL into storage settings
func applyStorageEnv(env envConfig, c *ServerConfig) error {
	storageURL := env.StorageURL

	switch {
	case storageURL == "" || storageURL == "memory" || storageURL == "memory://":
		c.StorageType = "memory"
		return nil

	case strings.HasPrefix(storageURL, "file://"):
		path := strings.TrimPrefix(storageURL, "file://")
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.StorageType = "fs"
		c.FSBaseDir = path
		return nil

	case strings.HasPrefix(storageURL, "s3://"):
		bucket := strings.TrimPrefix(storageURL, "s3://")
		if i := strings.IndexByte(bucket, '?'); i >= 0 {
			bucket = bucket[:i]
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		c.StorageType = "s3"
		c.S3 = S3Config{
			Region:          env.AWSRegion,
			Bucket:          bucket,
			AccessKeyID:     env.AWSAccessKeyID,
			SecretAccessKey: env.AWSSecretAccessKey,
			Endpoint:        env.AWSEndpoint,
			UsePathStyle:    env.AWSUsePathStyle,
		}
		return nil
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
}

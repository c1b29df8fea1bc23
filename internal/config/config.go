// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Entry repository backends.
const (
	EntryBackendSQLite    = "sqlite"
	EntryBackendPostgres  = "postgres"
	EntryBackendFirestore = "firestore"
)

// Blob store backends.
const (
	BlobBackendSQLite = "sqlite"
	BlobBackendInline = "inline"
	BlobBackendGCS    = "gcs"
	BlobBackendS3     = "s3"
)

// Operator authentication providers.
const (
	AuthProviderLocal    = "local"
	AuthProviderFirebase = "firebase"
)

// Config holds every setting the server needs at startup.
type Config struct {
	Port string
	Env  string

	EntryBackend string
	BlobBackend  string

	DatabasePath string // sqlite
	DatabaseURL  string // postgres

	GCPProject            string
	FirestoreEmulatorHost string
	CredentialsFile       string

	GCSBucket string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// SignedURLTTL is the lifetime of signed photo URLs. On gcs, zero serves
	// public object URLs instead.
	SignedURLTTL time.Duration

	AuthProvider      string
	AdminEmail        string
	AdminPasswordHash string
	AdminPassword     string // hashed at startup when no hash is configured
	JWTSecret         string
	BcryptCost        int
	CookieSecure      bool
	FirebaseProjectID string

	PlaceholderPhotoURL string
}

// Production reports whether the service runs with ENV=production.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads a .env file outside production, then the process environment.
func Load() (*Config, error) {
	if os.Getenv("ENV") != "production" {
		// Overload so the file wins over stale shell exports during development.
		if err := godotenv.Overload(".env"); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load .env: %w", err)
			}
		} else {
			slog.Info("loaded environment from .env")
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, defaultVal string) string {
		if val := strings.TrimSpace(getenv(key)); val != "" {
			return val
		}
		return defaultVal
	}

	cfg := &Config{
		Port:                  strings.TrimPrefix(env("PORT", "8080"), ":"),
		Env:                   env("ENV", "development"),
		EntryBackend:          strings.ToLower(env("ENTRY_BACKEND", EntryBackendSQLite)),
		BlobBackend:           strings.ToLower(env("BLOB_BACKEND", BlobBackendSQLite)),
		DatabasePath:          env("DATABASE_PATH", "catalogo.db"),
		DatabaseURL:           env("DATABASE_URL", ""),
		GCPProject:            env("GOOGLE_CLOUD_PROJECT", ""),
		FirestoreEmulatorHost: env("FIRESTORE_EMULATOR_HOST", ""),
		CredentialsFile:       env("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GCSBucket:             env("GCS_BUCKET", ""),
		S3Bucket:              env("S3_BUCKET", ""),
		S3Region:              env("S3_REGION", "us-east-1"),
		S3Endpoint:            env("S3_ENDPOINT", ""),
		S3AccessKey:           env("S3_ACCESS_KEY", ""),
		S3SecretKey:           env("S3_SECRET_KEY", ""),
		AuthProvider:          strings.ToLower(env("AUTH_PROVIDER", AuthProviderLocal)),
		AdminEmail:            env("ADMIN_EMAIL", ""),
		AdminPasswordHash:     env("ADMIN_PASSWORD_HASH", ""),
		AdminPassword:         getenv("ADMIN_PASSWORD"),
		JWTSecret:             getenv("JWT_SECRET"),
		// Default to secure cookies; disable only for local development.
		CookieSecure:        env("COOKIE_SECURE", "true") != "false",
		PlaceholderPhotoURL: env("PLACEHOLDER_PHOTO_URL", ""),
	}
	cfg.FirebaseProjectID = env("FIREBASE_PROJECT_ID", cfg.GCPProject)

	var err error
	if cfg.BcryptCost, err = parseBcryptCost(env("BCRYPT_COST", "12")); err != nil {
		return nil, err
	}
	if cfg.SignedURLTTL, err = time.ParseDuration(env("SIGNED_URL_TTL", "15m")); err != nil {
		return nil, fmt.Errorf("invalid SIGNED_URL_TTL: %w", err)
	}
	if cfg.SignedURLTTL < 0 {
		return nil, errors.New("SIGNED_URL_TTL must not be negative")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseBcryptCost(v string) (int, error) {
	cost, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	if cost < 4 || cost > 14 {
		return 0, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", cost)
	}
	return cost, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.EntryBackend {
	case EntryBackendSQLite:
	case EntryBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres entry backend"))
		}
	case EntryBackendFirestore:
		if c.GCPProject == "" {
			errs = append(errs, errors.New("GOOGLE_CLOUD_PROJECT is required for the firestore entry backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ENTRY_BACKEND %q", c.EntryBackend))
	}

	switch c.BlobBackend {
	case BlobBackendSQLite, BlobBackendInline:
	case BlobBackendGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs blob backend"))
		}
	case BlobBackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 blob backend"))
		}
		if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
			errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend))
	}

	switch c.AuthProvider {
	case AuthProviderLocal:
		if c.AdminEmail == "" {
			errs = append(errs, errors.New("ADMIN_EMAIL is required"))
		}
		if c.AdminPasswordHash == "" && c.AdminPassword == "" {
			errs = append(errs, errors.New("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required"))
		}
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required"))
		} else if len(c.JWTSecret) < 32 {
			errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security"))
		}
	case AuthProviderFirebase:
		if c.FirebaseProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT is required for firebase auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider))
	}

	return errors.Join(errs...)
}

// NeedsSQLite reports whether either backend is stored in the SQLite file.
func (c *Config) NeedsSQLite() bool {
	return c.EntryBackend == EntryBackendSQLite || c.BlobBackend == BlobBackendSQLite
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelier-catalogo/catalogo/internal/config"
	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/handler"
	"github.com/atelier-catalogo/catalogo/internal/repository/firestore"
	"github.com/atelier-catalogo/catalogo/internal/repository/gcs"
	"github.com/atelier-catalogo/catalogo/internal/repository/inline"
	"github.com/atelier-catalogo/catalogo/internal/repository/postgres"
	"github.com/atelier-catalogo/catalogo/internal/repository/s3"
	"github.com/atelier-catalogo/catalogo/internal/repository/sqlite"
	"github.com/atelier-catalogo/catalogo/internal/service"
)

func main() {
	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	// catalogo hash-password <password> prints a value for ADMIN_PASSWORD_HASH.
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		hash, err := service.HashPassword(os.Args[2], 12)
		if err != nil {
			slog.Error("hash password", "error", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]handler.HealthCheck{}

	var sqliteDB *sqlite.DB
	if cfg.NeedsSQLite() {
		sqliteDB, err = sqlite.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer sqliteDB.Close()
		if err := sqliteDB.Migrate(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		health["sqlite"] = sqliteDB.Ping
		slog.Info("database migrations applied", "path", cfg.DatabasePath)
	}

	entries, closeEntries, err := openEntries(ctx, cfg, sqliteDB, health)
	if err != nil {
		return err
	}
	defer closeEntries()

	blobs, photos, closeBlobs, err := openBlobs(ctx, cfg, sqliteDB)
	if err != nil {
		return err
	}
	defer closeBlobs()

	auth, login, err := openAuth(ctx, cfg)
	if err != nil {
		return err
	}

	entryService := service.NewEntryService(entries, blobs, service.WithPlaceholderURL(cfg.PlaceholderPhotoURL))

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Options{
		Entries: entryService,
		Auth:    auth,
		Login:   login,
		// Bursts of five attempts, then one every ten seconds per address.
		LoginLimiter: service.NewTokenBucket(ctx, 0.1, 5),
		Photos:       photos,
		Health:       health,
		CookieSecure: cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr,
			"entries", cfg.EntryBackend, "blobs", cfg.BlobBackend, "auth", cfg.AuthProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func openEntries(ctx context.Context, cfg *config.Config, sqliteDB *sqlite.DB, health map[string]handler.HealthCheck) (domain.EntryRepository, func(), error) {
	switch cfg.EntryBackend {
	case config.EntryBackendPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		health["postgres"] = db.Ping
		return db.Entries(), func() { db.Close() }, nil

	case config.EntryBackendFirestore:
		client, err := firestore.NewClient(ctx, firestore.Config{
			ProjectID:       cfg.GCPProject,
			EmulatorHost:    cfg.FirestoreEmulatorHost,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open firestore: %w", err)
		}
		repo, err := firestore.NewEntryRepository(client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return repo, func() { client.Close() }, nil

	default:
		return sqliteDB.Entries(), func() {}, nil
	}
}

// openBlobs returns the blob store and, for stores whose bytes are served by
// this process, the reader behind /photos/.
func openBlobs(ctx context.Context, cfg *config.Config, sqliteDB *sqlite.DB) (domain.BlobStore, domain.BlobReader, func(), error) {
	switch cfg.BlobBackend {
	case config.BlobBackendGCS:
		store, err := gcs.New(ctx, gcs.Config{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.CredentialsFile,
			SignedURLExpiry: cfg.SignedURLTTL,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open gcs: %w", err)
		}
		return store, nil, func() { store.Close() }, nil

	case config.BlobBackendS3:
		store, err := s3.New(ctx, s3.Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PresignExpiry: cfg.SignedURLTTL,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open s3: %w", err)
		}
		return store, nil, func() {}, nil

	case config.BlobBackendInline:
		return inline.New(), nil, func() {}, nil

	default:
		files := sqliteDB.FileStore()
		return files, files, func() {}, nil
	}
}

func openAuth(ctx context.Context, cfg *config.Config) (handler.Authenticator, handler.PasswordLogin, error) {
	if cfg.AuthProvider == config.AuthProviderFirebase {
		verifier, err := service.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.CredentialsFile, cfg.AdminEmail)
		if err != nil {
			return nil, nil, fmt.Errorf("init firebase auth: %w", err)
		}
		return verifier, nil, nil
	}

	hash := cfg.AdminPasswordHash
	if hash == "" {
		slog.Warn("ADMIN_PASSWORD is set in plain text; prefer ADMIN_PASSWORD_HASH (see hash-password)")
		var err error
		if hash, err = service.HashPassword(cfg.AdminPassword, cfg.BcryptCost); err != nil {
			return nil, nil, fmt.Errorf("hash admin password: %w", err)
		}
	}
	auth, err := service.NewAuthService(cfg.AdminEmail, hash, cfg.JWTSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("init auth: %w", err)
	}
	return auth, auth, nil
}

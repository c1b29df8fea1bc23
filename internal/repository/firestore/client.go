// Package firestore stores catalog entries in Cloud Firestore, one
// collection per catalog kind.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

const (
	defaultDialTimeout = 10 * time.Second
	envEmulatorHost    = "FIRESTORE_EMULATOR_HOST"
)

// Config selects the Firestore project and connection mode.
type Config struct {
	ProjectID       string
	EmulatorHost    string
	CredentialsFile string
}

// NewClient creates a Firestore client. When an emulator host is configured
// the connection is unauthenticated and plaintext.
func NewClient(ctx context.Context, cfg Config) (*firestore.Client, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	var opts []option.ClientOption
	host := strings.TrimSpace(cfg.EmulatorHost)
	if host == "" {
		host = strings.TrimSpace(os.Getenv(envEmulatorHost))
	}
	switch {
	case host != "":
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	return client, nil
}

// wrapError maps Firestore status codes onto domain errors.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if status.Code(err) == codes.NotFound {
		return domain.ErrNotFound
	}
	return fmt.Errorf("firestore: %s: %w", op, err)
}

package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation owns its own migration strategy, so the entry
// backend stays swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
}

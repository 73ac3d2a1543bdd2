// Package store provides persistence for the few settings that outlive a
// process restart.
package store

import (
	"context"
)

// Repository defines the interface for persisting key-value settings.
type Repository interface {
	// GetSetting returns the stored value for key. ok is false when the key
	// has never been written.
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)

	// PutSetting creates or replaces the value for key.
	PutSetting(ctx context.Context, key, value string) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

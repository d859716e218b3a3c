package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Memory model related methods.
	CreateMemory(ctx context.Context, create *Memory) (*Memory, error)
	ListMemories(ctx context.Context, find *FindMemory) ([]*Memory, error)
	DeleteMemory(ctx context.Context, delete *DeleteMemory) error
}

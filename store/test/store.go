// Package test provides store construction helpers for package tests.
package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/echoesapp/echoes/internal/profile"
	"github.com/echoesapp/echoes/store"
	"github.com/echoesapp/echoes/store/db"
)

// NewTestingStore opens a fresh SQLite-backed store in a per-test temp
// directory with the schema applied.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	dir := t.TempDir()
	p := &profile.Profile{
		Mode:   "dev",
		Data:   dir,
		Driver: "sqlite",
		DSN:    filepath.Join(dir, "echoes_test.db"),
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	// Single connection keeps test runs deterministic.
	driver.GetDB().SetMaxOpenConns(1)

	ts := store.New(driver, p)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = ts.Close()
	})
	return ts
}

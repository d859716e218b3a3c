package store

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/pkg/errors"
)

// Migration files live under store/migration/{driver}/LATEST.sql. A fresh
// database gets the full latest schema in one shot; there is no incremental
// migration history yet because the schema has a single version.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the name of the latest schema file, used to
// initialize fresh installations with the current schema.
const LatestSchemaFileName = "LATEST.sql"

// Migrate ensures the database schema is present. It is a no-op on an
// already-initialized database.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}
	if initialized {
		return nil
	}

	buf, err := fs.ReadFile(migrationFS, "migration/"+s.profile.Driver+"/"+LatestSchemaFileName)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema for driver %s", s.profile.Driver)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}

	slog.Info("database initialized", slog.String("driver", s.profile.Driver), slog.String("dsn", s.profile.DSN))
	return nil
}

package db

import (
	"github.com/pkg/errors"

	"github.com/echoesapp/echoes/internal/profile"
	"github.com/echoesapp/echoes/store"
	"github.com/echoesapp/echoes/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
// Echoes is a single-device local store, so SQLite is the only driver.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' is supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}

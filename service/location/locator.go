// Package location acquires one-shot location fixes with a bounded wait and
// resolves coordinates to human-readable place names.
package location

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/echoesapp/echoes/internal/errs"
	"github.com/echoesapp/echoes/internal/geo"
	"github.com/echoesapp/echoes/service/geofence"
)

// DefaultFixTimeout bounds the wait for a location fix. The platform's fix
// callback may simply never fire, so the wait must have a ceiling.
const DefaultFixTimeout = 10 * time.Second

// UnknownLocationName is stored when reverse geocoding fails.
const UnknownLocationName = "Unknown Location"

// Locator requests location fixes and reverse-geocodes them.
type Locator struct {
	provider geofence.FixProvider
	geocoder geofence.Geocoder
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc // cancels the outstanding fix request
}

// NewLocator creates a Locator with the default fix timeout.
func NewLocator(provider geofence.FixProvider, geocoder geofence.Geocoder, logger *slog.Logger) *Locator {
	return &Locator{
		provider: provider,
		geocoder: geocoder,
		logger:   logger,
		timeout:  DefaultFixTimeout,
	}
}

// Current requests a single location fix. A second call supersedes the
// first: the outstanding request is canceled explicitly rather than
// overwritten. The wait is bounded by the fix timeout.
func (l *Locator) Current(ctx context.Context) (geo.Coordinate, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	fixCtx, cancel := context.WithTimeout(ctx, l.timeout)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	select {
	case coord, ok := <-l.provider.RequestFix(fixCtx):
		if !ok {
			return geo.Coordinate{}, errs.ServiceUnavailable("location provider closed without a fix")
		}
		return coord, nil
	case <-fixCtx.Done():
		if fixCtx.Err() == context.DeadlineExceeded {
			return geo.Coordinate{}, errs.Timeout("timed out waiting for a location fix")
		}
		return geo.Coordinate{}, errs.Canceled(fixCtx.Err())
	}
}

// ResolveName reverse-geocodes a coordinate, falling back to
// UnknownLocationName on any failure. Best-effort: there is no retry and no
// error surfaces to the caller.
func (l *Locator) ResolveName(ctx context.Context, coord geo.Coordinate) string {
	name, err := l.geocoder.ReverseGeocode(ctx, coord)
	if err != nil || name == "" {
		if err != nil {
			l.logger.Debug("reverse geocode failed",
				slog.Float64("latitude", coord.Latitude),
				slog.Float64("longitude", coord.Longitude),
				slog.String("error", err.Error()))
		}
		return UnknownLocationName
	}
	return name
}

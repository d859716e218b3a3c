package geofence

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lithammer/shortuuid/v4"

	"github.com/echoesapp/echoes/internal/profile"
	"github.com/echoesapp/echoes/store"
)

// PayloadMemoryID is the notification payload key carrying the memory id.
const PayloadMemoryID = "memoryID"

const (
	notificationTitle = "Memory Unlocked"
	notificationBody  = "You're near one of your memories. Tap to revisit it."
)

// Synchronizer reconciles the provider's watched regions against the memory
// collection and dispatches a notification on region entry.
//
// Sync calls and provider events are both handled on one internal goroutine,
// so a region can never fire "entered" concurrently with a teardown/rebuild
// of that same region.
type Synchronizer struct {
	provider   LocationProvider
	dispatcher NotificationDispatcher
	logger     *slog.Logger
	radius     float64

	calls    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu              sync.RWMutex
	activeRegionIDs []string
	lastError       string
}

// NewSynchronizer creates a synchronizer watching regions of the radius
// configured in the profile.
func NewSynchronizer(provider LocationProvider, dispatcher NotificationDispatcher, p *profile.Profile, logger *slog.Logger) *Synchronizer {
	radius := p.GeofenceRadiusMeters
	if radius <= 0 {
		radius = profile.DefaultGeofenceRadiusMeters
	}
	return &Synchronizer{
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
		radius:     radius,
		calls:      make(chan func()),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the event loop. It returns when ctx is canceled or Stop is
// called; pending region-state callbacks are dropped on the floor.
func (s *Synchronizer) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case call := <-s.calls:
				call()
			case event := <-s.provider.Events():
				s.handleEvent(ctx, event)
			}
		}
	}()
}

// Stop shuts the event loop down and waits for it to exit. Safe to call
// more than once, including concurrently.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// EnsurePermission requests "always" location permission, but only on a
// transition out of the undetermined state. Granted and denied states are
// left alone so the user is never re-prompted.
func (s *Synchronizer) EnsurePermission() {
	if s.provider.PermissionStatus() == PermissionUndetermined {
		s.provider.RequestAlwaysPermission()
	}
}

// SyncRegions tears down every watched region and rebuilds one region per
// memory with valid coordinates. The call runs to completion on the event
// loop and returns once the new region set is active. Calling it again with
// the same input is a no-op on the final state.
func (s *Synchronizer) SyncRegions(ctx context.Context, memories []*store.Memory) {
	applied := make(chan struct{})
	select {
	case s.calls <- func() {
		s.sync(memories)
		close(applied)
	}:
		<-applied
	case <-s.done:
	case <-ctx.Done():
	}
}

// ActiveRegionIDs returns the identifiers of the regions watched after the
// most recent sync.
func (s *Synchronizer) ActiveRegionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.activeRegionIDs...)
}

// LastError returns the last surfaced monitoring failure message.
func (s *Synchronizer) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// sync runs on the event loop.
func (s *Synchronizer) sync(memories []*store.Memory) {
	// Missing capability is an expected environment condition, not a
	// failure: leave regions untouched and raise nothing.
	if !s.provider.ServicesEnabled() || !s.provider.MonitoringAvailable() {
		s.logger.Debug("skipping region sync: location services or monitoring unavailable")
		return
	}

	for _, region := range s.provider.MonitoredRegions() {
		s.provider.StopMonitoring(region.ID)
	}

	ids := make([]string, 0, len(memories))
	for _, m := range memories {
		coord := m.Coordinate()
		if !coord.Valid() {
			continue
		}

		id := m.ID
		if id == "" {
			id = shortuuid.New()
		}

		region := Region{
			ID:            id,
			Center:        coord,
			Radius:        s.radius,
			NotifyOnEntry: true,
			NotifyOnExit:  false,
		}
		if err := s.provider.StartMonitoring(region); err != nil {
			s.logger.Warn("failed to start monitoring region",
				slog.String("region_id", id), slog.String("error", err.Error()))
			continue
		}
		// Catch the "already inside" case. The answer is only logged so a
		// state check can never double up with an entry notification.
		s.provider.RequestState(id)
		ids = append(ids, id)
	}

	s.mu.Lock()
	s.activeRegionIDs = ids
	s.mu.Unlock()

	s.logger.Info("regions synced", slog.Int("active", len(ids)), slog.Int("input", len(memories)))
}

// handleEvent runs on the event loop.
func (s *Synchronizer) handleEvent(ctx context.Context, event Event) {
	switch event.Kind {
	case EventEntry:
		payload := map[string]string{PayloadMemoryID: event.RegionID}
		if err := s.dispatcher.Notify(ctx, event.RegionID, notificationTitle, notificationBody, payload); err != nil {
			s.logger.Error("failed to dispatch entry notification",
				slog.String("region_id", event.RegionID), slog.String("error", err.Error()))
		}
	case EventExit:
		// Exit notifications are never requested.
	case EventState:
		s.logger.Debug("region state",
			slog.String("region_id", event.RegionID), slog.String("state", event.State))
	case EventMonitoringFailure:
		message := "Location monitoring failed."
		if event.Err != nil {
			s.logger.Warn("region monitoring failure",
				slog.String("region_id", event.RegionID), slog.String("error", event.Err.Error()))
		}
		// Monitoring state is left as-is; there is no automatic retry.
		s.mu.Lock()
		s.lastError = message
		s.mu.Unlock()
	}
}

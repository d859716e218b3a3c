package geofence

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/echoesapp/echoes/internal/profile"
	"github.com/echoesapp/echoes/store"
)

type fakeProvider struct {
	mu sync.Mutex

	servicesEnabled     bool
	monitoringAvailable bool
	permission          PermissionStatus
	permissionRequests  int
	startErr            error

	regions       map[string]Region
	stateRequests []string
	events        chan Event
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		servicesEnabled:     true,
		monitoringAvailable: true,
		permission:          PermissionGranted,
		regions:             map[string]Region{},
		events:              make(chan Event, 16),
	}
}

func (p *fakeProvider) ServicesEnabled() bool     { return p.servicesEnabled }
func (p *fakeProvider) MonitoringAvailable() bool { return p.monitoringAvailable }

func (p *fakeProvider) PermissionStatus() PermissionStatus { return p.permission }

func (p *fakeProvider) RequestAlwaysPermission() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permissionRequests++
	p.permission = PermissionGranted
}

func (p *fakeProvider) StartMonitoring(region Region) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.regions[region.ID] = region
	return nil
}

func (p *fakeProvider) StopMonitoring(regionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.regions, regionID)
}

func (p *fakeProvider) MonitoredRegions() []Region {
	p.mu.Lock()
	defer p.mu.Unlock()
	list := make([]Region, 0, len(p.regions))
	for _, r := range p.regions {
		list = append(list, r)
	}
	return list
}

func (p *fakeProvider) RequestState(regionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stateRequests = append(p.stateRequests, regionID)
}

func (p *fakeProvider) Events() <-chan Event { return p.events }

type notifyCall struct {
	identifier string
	title      string
	body       string
	payload    map[string]string
}

type fakeDispatcher struct {
	calls chan notifyCall
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{calls: make(chan notifyCall, 16)}
}

func (d *fakeDispatcher) Notify(_ context.Context, identifier, title, body string, payload map[string]string) error {
	d.calls <- notifyCall{identifier: identifier, title: title, body: body, payload: payload}
	return nil
}

func newTestSynchronizer(t *testing.T) (*Synchronizer, *fakeProvider, *fakeDispatcher) {
	t.Helper()
	provider := newFakeProvider()
	dispatcher := newFakeDispatcher()
	s := NewSynchronizer(provider, dispatcher, &profile.Profile{GeofenceRadiusMeters: 150}, slog.Default())
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s, provider, dispatcher
}

func memoryAt(id string, lat, lon float64) *store.Memory {
	return &store.Memory{ID: id, OwnerID: "u1", Title: id, Latitude: lat, Longitude: lon}
}

func TestSyncRegionsBuildsRegionPerMemory(t *testing.T) {
	s, provider, _ := newTestSynchronizer(t)
	ctx := context.Background()

	s.SyncRegions(ctx, []*store.Memory{
		memoryAt("m1", 40.0, -74.0),
		memoryAt("m2", 51.5, -0.12),
	})

	require.ElementsMatch(t, []string{"m1", "m2"}, s.ActiveRegionIDs())
	regions := provider.MonitoredRegions()
	require.Len(t, regions, 2)
	for _, r := range regions {
		require.Equal(t, 150.0, r.Radius)
		require.True(t, r.NotifyOnEntry)
		require.False(t, r.NotifyOnExit)
	}
	// A state check was requested for every started region.
	require.Len(t, provider.stateRequests, 2)
}

func TestSyncRegionsSkipsInvalidCoordinates(t *testing.T) {
	s, provider, _ := newTestSynchronizer(t)
	ctx := context.Background()

	s.SyncRegions(ctx, []*store.Memory{
		memoryAt("bad", math.NaN(), -74.0),
	})

	require.Empty(t, s.ActiveRegionIDs())
	require.Empty(t, provider.MonitoredRegions())
}

func TestSyncRegionsIdempotent(t *testing.T) {
	s, provider, _ := newTestSynchronizer(t)
	ctx := context.Background()
	memories := []*store.Memory{memoryAt("m1", 40.0, -74.0)}

	s.SyncRegions(ctx, memories)
	first := s.ActiveRegionIDs()
	s.SyncRegions(ctx, memories)
	second := s.ActiveRegionIDs()

	require.Equal(t, first, second)
	require.Len(t, provider.MonitoredRegions(), 1)
}

func TestSyncRegionsEmptyInputClearsEverything(t *testing.T) {
	s, provider, _ := newTestSynchronizer(t)
	ctx := context.Background()

	s.SyncRegions(ctx, []*store.Memory{memoryAt("m1", 40.0, -74.0)})
	require.Len(t, s.ActiveRegionIDs(), 1)

	s.SyncRegions(ctx, nil)
	require.Empty(t, s.ActiveRegionIDs())
	require.Empty(t, provider.MonitoredRegions())
}

func TestSyncRegionsNoOpWhenUnavailable(t *testing.T) {
	s, provider, _ := newTestSynchronizer(t)
	ctx := context.Background()

	s.SyncRegions(ctx, []*store.Memory{memoryAt("m1", 40.0, -74.0)})
	require.Len(t, s.ActiveRegionIDs(), 1)

	// With monitoring unavailable a sync changes nothing and raises nothing.
	provider.monitoringAvailable = false
	s.SyncRegions(ctx, nil)
	require.Len(t, s.ActiveRegionIDs(), 1)
	require.Len(t, provider.MonitoredRegions(), 1)
	require.Empty(t, s.LastError())
}

func TestSyncRegionsFallbackIDForMemoryWithoutID(t *testing.T) {
	s, _, _ := newTestSynchronizer(t)
	ctx := context.Background()

	s.SyncRegions(ctx, []*store.Memory{memoryAt("", 40.0, -74.0)})

	ids := s.ActiveRegionIDs()
	require.Len(t, ids, 1)
	require.NotEmpty(t, ids[0])
}

func TestEntryEventDispatchesSingleNotification(t *testing.T) {
	s, provider, dispatcher := newTestSynchronizer(t)
	ctx := context.Background()

	s.SyncRegions(ctx, []*store.Memory{memoryAt("m1", 40.0, -74.0)})
	provider.events <- Event{Kind: EventEntry, RegionID: "m1"}

	select {
	case call := <-dispatcher.calls:
		require.Equal(t, "m1", call.identifier)
		require.Equal(t, "Memory Unlocked", call.title)
		require.Equal(t, "m1", call.payload[PayloadMemoryID])
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification for the entry event")
	}

	// Exactly one notification per entry event.
	select {
	case <-dispatcher.calls:
		t.Fatal("unexpected extra notification")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExitAndStateEventsDoNotNotify(t *testing.T) {
	s, provider, dispatcher := newTestSynchronizer(t)
	ctx := context.Background()

	s.SyncRegions(ctx, []*store.Memory{memoryAt("m1", 40.0, -74.0)})
	provider.events <- Event{Kind: EventExit, RegionID: "m1"}
	provider.events <- Event{Kind: EventState, RegionID: "m1", State: "inside"}

	select {
	case <-dispatcher.calls:
		t.Fatal("exit/state events must not notify")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitoringFailureSurfacesErrorAndKeepsRegions(t *testing.T) {
	s, provider, _ := newTestSynchronizer(t)
	ctx := context.Background()

	s.SyncRegions(ctx, []*store.Memory{memoryAt("m1", 40.0, -74.0)})
	provider.events <- Event{Kind: EventMonitoringFailure, RegionID: "m1", Err: errors.New("radio off")}

	require.Eventually(t, func() bool {
		return s.LastError() != ""
	}, 2*time.Second, 10*time.Millisecond)
	require.Len(t, s.ActiveRegionIDs(), 1)
	require.Len(t, provider.MonitoredRegions(), 1)
}

func TestEnsurePermissionRequestsOnlyFromUndetermined(t *testing.T) {
	s, provider, _ := newTestSynchronizer(t)

	provider.permission = PermissionUndetermined
	s.EnsurePermission()
	require.Equal(t, 1, provider.permissionRequests)

	// Granted now: no re-prompt.
	s.EnsurePermission()
	require.Equal(t, 1, provider.permissionRequests)

	provider.permission = PermissionDenied
	s.EnsurePermission()
	require.Equal(t, 1, provider.permissionRequests)
}

func TestStopIsSafeToCallConcurrently(t *testing.T) {
	s, _, _ := newTestSynchronizer(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()

	// Every Stop call returned only after the loop exited.
	select {
	case <-s.done:
	default:
		t.Fatal("event loop still running after Stop")
	}
}

func TestDeleteRemovesRegionOnNextSync(t *testing.T) {
	s, provider, _ := newTestSynchronizer(t)
	ctx := context.Background()

	m := memoryAt("m1", 40.0, -74.0)
	s.SyncRegions(ctx, []*store.Memory{m})
	require.Equal(t, []string{"m1"}, s.ActiveRegionIDs())

	// The memory was deleted; the next sync runs against the fresh list.
	s.SyncRegions(ctx, []*store.Memory{})
	require.Empty(t, s.ActiveRegionIDs())
	require.Empty(t, provider.MonitoredRegions())
}

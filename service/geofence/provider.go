// Package geofence keeps the location provider's watched-region set
// consistent with the current memory collection and turns region entry
// events into local notifications.
package geofence

import (
	"context"

	"github.com/echoesapp/echoes/internal/geo"
)

// PermissionStatus mirrors the platform's location permission state.
type PermissionStatus int

const (
	PermissionUndetermined PermissionStatus = iota
	PermissionDenied
	PermissionGranted
)

// Region is a circular watch area around a coordinate. Regions are derived
// state: fully recomputed on every sync, never patched in place.
type Region struct {
	// ID equals the owning memory's id (or a random fallback).
	ID     string
	Center geo.Coordinate
	Radius float64

	// Entry-only by contract: NotifyOnEntry is always true and
	// NotifyOnExit always false for regions this package creates.
	NotifyOnEntry bool
	NotifyOnExit  bool
}

// EventKind classifies an asynchronous region event.
type EventKind int

const (
	// EventEntry reports the device entered a watched region.
	EventEntry EventKind = iota
	// EventExit reports the device left a watched region. Ignored.
	EventExit
	// EventState reports the result of a requested region state check.
	EventState
	// EventMonitoringFailure reports the provider failed to monitor a region.
	EventMonitoringFailure
)

// Event is delivered asynchronously by the location provider.
type Event struct {
	Kind     EventKind
	RegionID string
	// State carries the region state for EventState ("inside"/"outside").
	State string
	// Err carries the failure for EventMonitoringFailure.
	Err error
}

// LocationProvider abstracts the platform region-monitoring service.
type LocationProvider interface {
	// ServicesEnabled reports whether location services are on at all.
	ServicesEnabled() bool
	// MonitoringAvailable reports whether region monitoring is supported.
	MonitoringAvailable() bool

	PermissionStatus() PermissionStatus
	// RequestAlwaysPermission prompts for "always" location permission.
	// Callers must only invoke it from the Undetermined state.
	RequestAlwaysPermission()

	StartMonitoring(region Region) error
	StopMonitoring(regionID string)
	MonitoredRegions() []Region

	// RequestState asks for an immediate region state check so an
	// "already inside" region is noticed. Best-effort; the answer comes
	// back as an EventState on Events.
	RequestState(regionID string)

	// Events delivers entry/exit/state/failure events. The channel stays
	// open for the provider's lifetime.
	Events() <-chan Event
}

// FixProvider delivers one-shot location fixes. The returned channel yields
// at most one coordinate; it may never yield if the platform goes quiet,
// which is why callers bound the wait with a context.
type FixProvider interface {
	RequestFix(ctx context.Context) <-chan geo.Coordinate
}

// Geocoder resolves a coordinate to a human-readable place name.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, coord geo.Coordinate) (string, error)
}

// NotificationDispatcher surfaces local notifications. The payload carries
// the memory identifier so the UI can later resolve it via the memory
// service's Find.
type NotificationDispatcher interface {
	Notify(ctx context.Context, identifier, title, body string, payload map[string]string) error
}

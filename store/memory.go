package store

import "github.com/echoesapp/echoes/internal/geo"

// Memory represents a user-authored record binding text and media content to
// a place and time. Records are never updated in place: they are created via
// CreateMemory and removed via DeleteMemory.
type Memory struct {
	// ID is the opaque unique identifier, assigned at creation.
	ID string

	// Standard fields
	OwnerID   string
	CreatedTs int64

	// Domain specific fields
	Title        string
	Description  string
	EventTs      int64
	Latitude     float64
	Longitude    float64
	LocationName string

	// Media blobs. HasPhoto and HasVoiceNote are stored independently of
	// blob presence: they are set at write time and never re-derived.
	Photo        []byte
	HasPhoto     bool
	VoiceNote    []byte
	HasVoiceNote bool
}

// Coordinate returns the memory's location as a value type.
func (m *Memory) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: m.Latitude, Longitude: m.Longitude}
}

// FindMemory specifies the conditions for finding memories.
type FindMemory struct {
	ID      *string
	OwnerID *string

	// GetBlobs controls whether photo and voice note blobs are loaded.
	// List queries leave them out; they are fetched per record on demand.
	GetBlobs bool

	Limit  *int
	Offset *int
}

// DeleteMemory specifies the memory to delete.
type DeleteMemory struct {
	ID string
}

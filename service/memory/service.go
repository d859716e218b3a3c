// Package memory implements the memory collection service: per-owner CRUD
// over memory records, substring search, derived counters, and the
// "memories changed" signal consumed by the geofence synchronizer.
//
// All state (current owner, fetched collection, last error message) is owned
// by the service and mutated only through the operations below. Persistence
// failures never propagate as panics: the collection stays at its
// last-known-good state and the failure is surfaced via LastError.
package memory

import (
	"bytes"
	"context"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	"github.com/echoesapp/echoes/internal/errs"
	"github.com/echoesapp/echoes/internal/geo"
	"github.com/echoesapp/echoes/store"
)

const (
	photoCacheMaxCost  = 64 << 20 // decoded photo cache budget in bytes
	photoCacheCounters = 10_000
)

// ChangeListener receives the fresh collection after every successful save
// or delete. The collection has always been re-fetched before the listener
// runs.
type ChangeListener func(memories []*store.Memory)

// SaveRequest carries the fields of a new memory. Title validation is the
// caller's concern; the service stores whatever it is given.
type SaveRequest struct {
	Title        string
	Description  string
	EventTs      int64
	Latitude     float64
	Longitude    float64
	LocationName string
	Photo        []byte
	VoiceNote    []byte
}

// Service owns the memory collection for the currently signed-in owner.
type Service struct {
	store  *store.Store
	logger *slog.Logger

	photoCache *ristretto.Cache
	photoGroup singleflight.Group

	mu        sync.Mutex
	ownerID   string
	memories  []*store.Memory
	lastError string
	listeners []ChangeListener
}

// NewService creates the memory service. The collection starts empty and
// signed out.
func NewService(st *store.Store, logger *slog.Logger) (*Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: photoCacheCounters,
		MaxCost:     photoCacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeServiceUnavailable, "failed to create photo cache")
	}

	s := &Service{
		store:      st,
		logger:     logger,
		photoCache: cache,
		memories:   []*store.Memory{},
	}
	return s, nil
}

// Close releases the photo cache resources.
func (s *Service) Close() {
	s.photoCache.Close()
}

// OnChange registers a listener for the "memories changed" signal.
func (s *Service) OnChange(fn ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetCurrentOwner switches the active scope and immediately re-fetches.
// An empty owner id means signed out: every subsequent fetch returns an
// empty collection, never another user's records.
func (s *Service) SetCurrentOwner(ctx context.Context, ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerID = ownerID
	s.refetchLocked(ctx)
}

// Fetch returns all memories for the current owner, newest event first.
// A storage failure is surfaced via LastError and the last-known-good
// collection is returned; nothing throws past this boundary.
func (s *Service) Fetch(ctx context.Context) []*store.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refetchLocked(ctx)
	return s.memories
}

// Memories returns the currently fetched collection without hitting storage.
func (s *Service) Memories() []*store.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memories
}

// Save persists a new memory for the current owner, re-fetches, and fires
// the change signal. Without a signed-in owner the operation aborts with an
// unauthenticated error and no partial write.
func (s *Service) Save(ctx context.Context, req *SaveRequest) (*store.Memory, error) {
	s.mu.Lock()

	if s.ownerID == "" {
		s.lastError = "You need to be signed in to save a memory."
		s.mu.Unlock()
		return nil, errs.Unauthenticated("no current owner")
	}

	coord := geo.New(req.Latitude, req.Longitude)
	create := &store.Memory{
		OwnerID:      s.ownerID,
		CreatedTs:    time.Now().Unix(),
		Title:        req.Title,
		Description:  req.Description,
		EventTs:      req.EventTs,
		Latitude:     coord.Latitude,
		Longitude:    coord.Longitude,
		LocationName: req.LocationName,
		Photo:        req.Photo,
		HasPhoto:     len(req.Photo) > 0,
		VoiceNote:    req.VoiceNote,
		HasVoiceNote: len(req.VoiceNote) > 0,
	}

	created, err := s.store.CreateMemory(ctx, create)
	if err != nil {
		s.lastError = "Failed to save your memory. Please try again."
		s.logger.Error("failed to save memory", slog.String("owner_id", s.ownerID), slog.String("error", err.Error()))
		s.mu.Unlock()
		return nil, errs.StorageFailure("failed to save memory", err)
	}

	s.lastError = ""
	s.refetchLocked(ctx)
	snapshot, listeners := s.memories, append([]ChangeListener(nil), s.listeners...)
	s.mu.Unlock()

	// The collection is already re-fetched here, so listeners that re-read
	// state observe fresh data.
	for _, fn := range listeners {
		fn(snapshot)
	}
	return created, nil
}

// Delete removes the record, re-fetches, and fires the change signal. A
// storage failure leaves the collection untouched.
func (s *Service) Delete(ctx context.Context, m *store.Memory) error {
	s.mu.Lock()

	if err := s.store.DeleteMemory(ctx, &store.DeleteMemory{ID: m.ID}); err != nil {
		s.lastError = "Failed to delete the memory. Please try again."
		s.logger.Error("failed to delete memory", slog.String("memory_id", m.ID), slog.String("error", err.Error()))
		s.mu.Unlock()
		return errs.StorageFailure("failed to delete memory", err)
	}

	s.photoCache.Del(m.ID)
	s.lastError = ""
	s.refetchLocked(ctx)
	snapshot, listeners := s.memories, append([]ChangeListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
	return nil
}

// Search returns records whose title, description, or location name contains
// the query, case-insensitively. An empty query returns the current
// collection unmodified rather than a fresh fetch.
func (s *Service) Search(query string) []*store.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query == "" {
		return s.memories
	}

	q := strings.ToLower(query)
	matches := []*store.Memory{}
	for _, m := range s.memories {
		if strings.Contains(strings.ToLower(m.Title), q) ||
			strings.Contains(strings.ToLower(m.Description), q) ||
			strings.Contains(strings.ToLower(m.LocationName), q) {
			matches = append(matches, m)
		}
	}
	return matches
}

// Find returns the memory with the given id from the current collection, or
// nil when absent.
func (s *Service) Find(id string) *store.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memories {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Photo decodes the stored photo blob into a displayable image. It returns
// nil when the memory has no photo or the blob cannot be decoded. Decoded
// images are cached; concurrent decodes of the same memory are collapsed.
func (s *Service) Photo(ctx context.Context, m *store.Memory) image.Image {
	if m == nil || !m.HasPhoto {
		return nil
	}

	if cached, ok := s.photoCache.Get(m.ID); ok {
		if img, ok := cached.(image.Image); ok {
			return img
		}
	}

	v, err, _ := s.photoGroup.Do(m.ID, func() (any, error) {
		record, err := s.store.GetMemory(ctx, &store.FindMemory{ID: &m.ID, GetBlobs: true})
		if err != nil || record == nil || len(record.Photo) == 0 {
			return nil, err
		}
		img, err := imaging.Decode(bytes.NewReader(record.Photo))
		if err != nil {
			s.logger.Warn("failed to decode photo", slog.String("memory_id", m.ID), slog.String("error", err.Error()))
			return nil, nil
		}
		s.photoCache.Set(m.ID, img, int64(len(record.Photo)))
		return img, nil
	})
	if err != nil || v == nil {
		return nil
	}
	return v.(image.Image)
}

// Count returns the number of memories in the current collection.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memories)
}

// DistinctLocationCount returns the number of distinct location names in the
// current collection.
func (s *Service) DistinctLocationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, m := range s.memories {
		seen[m.LocationName] = struct{}{}
	}
	return len(seen)
}

// PhotoCount returns the number of memories flagged as having a photo.
func (s *Service) PhotoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.memories {
		if m.HasPhoto {
			n++
		}
	}
	return n
}

// VoiceNoteCount returns the number of memories flagged as having a voice
// note.
func (s *Service) VoiceNoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.memories {
		if m.HasVoiceNote {
			n++
		}
	}
	return n
}

// LastError returns the last user-facing error message, empty after the
// most recent successful operation.
func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// refetchLocked re-runs the fetch for the current owner. Caller holds the
// lock. On failure the collection keeps its last-known-good contents.
func (s *Service) refetchLocked(ctx context.Context) {
	if s.ownerID == "" {
		s.memories = []*store.Memory{}
		return
	}

	ownerID := s.ownerID
	list, err := s.store.ListMemories(ctx, &store.FindMemory{OwnerID: &ownerID})
	if err != nil {
		s.lastError = "Failed to load your memories."
		s.logger.Error("failed to fetch memories", slog.String("owner_id", ownerID), slog.String("error", err.Error()))
		return
	}
	s.lastError = ""
	s.memories = list
}

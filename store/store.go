package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/echoesapp/echoes/internal/geo"
	"github.com/echoesapp/echoes/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateMemory persists a new memory record. The identifier and creation
// timestamp are assigned here when absent; coordinates are coerced so a
// non-finite component never reaches storage.
func (s *Store) CreateMemory(ctx context.Context, create *Memory) (*Memory, error) {
	if create.OwnerID == "" {
		return nil, errors.New("owner id is required")
	}
	if create.ID == "" {
		create.ID = uuid.New().String()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	coord := geo.New(create.Latitude, create.Longitude)
	create.Latitude = coord.Latitude
	create.Longitude = coord.Longitude

	return s.driver.CreateMemory(ctx, create)
}

// ListMemories returns memories matching find, ordered by event timestamp
// descending.
func (s *Store) ListMemories(ctx context.Context, find *FindMemory) ([]*Memory, error) {
	return s.driver.ListMemories(ctx, find)
}

// GetMemory returns the first memory matching find, or nil when absent.
func (s *Store) GetMemory(ctx context.Context, find *FindMemory) (*Memory, error) {
	list, err := s.ListMemories(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteMemory(ctx context.Context, delete *DeleteMemory) error {
	return s.driver.DeleteMemory(ctx, delete)
}

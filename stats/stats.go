// Package stats provides simple local usage statistics over the memory
// collection. This is a lightweight alternative to enterprise monitoring.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/echoesapp/echoes/service/memory"
)

// Stats represents usage statistics for the current owner's collection.
type Stats struct {
	TotalMemories     int64
	DistinctLocations int64
	WithPhoto         int64
	WithVoiceNote     int64

	MemoriesLastWeek  int64
	MemoriesLastMonth int64
	LastMemoryTime    time.Time

	LastUpdated time.Time
}

// Collector collects and manages usage statistics.
type Collector struct {
	memories *memory.Service
	stats    *Stats
	mu       sync.Mutex
	tickStop chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a new statistics collector.
func NewCollector(svc *memory.Service) *Collector {
	return &Collector{
		memories: svc,
		stats: &Stats{
			LastUpdated: time.Now(),
		},
		tickStop: make(chan struct{}),
	}
}

// Start begins periodic statistics collection. Updates every hour.
func (c *Collector) Start(ctx context.Context) {
	// Initial collection
	c.Collect(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Collect(ctx)
			case <-ctx.Done():
				return
			case <-c.tickStop:
				return
			}
		}
	}()
}

// Stop stops the statistics collector. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.tickStop) })
}

// GetStats returns a copy of current statistics.
func (c *Collector) GetStats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *c.stats
	return &copied
}

// Collect gathers current statistics from the memory collection.
func (c *Collector) Collect(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	list := c.memories.Memories()
	c.stats.TotalMemories = int64(len(list))
	c.stats.DistinctLocations = int64(c.memories.DistinctLocationCount())
	c.stats.WithPhoto = int64(c.memories.PhotoCount())
	c.stats.WithVoiceNote = int64(c.memories.VoiceNoteCount())

	weekCount, monthCount := int64(0), int64(0)
	lastMemoryTime := time.Time{}
	for _, m := range list {
		created := time.Unix(m.CreatedTs, 0)
		if !created.Before(weekAgo) {
			weekCount++
		}
		if !created.Before(monthAgo) {
			monthCount++
		}
		if created.After(lastMemoryTime) {
			lastMemoryTime = created
		}
	}
	c.stats.MemoriesLastWeek = weekCount
	c.stats.MemoriesLastMonth = monthCount
	c.stats.LastMemoryTime = lastMemoryTime

	c.stats.LastUpdated = now
}

// GetSummary returns a human-readable summary.
func (s *Stats) GetSummary() string {
	return fmt.Sprintf(
		`Usage stats (updated %s)

Memories
  total: %d
  last week: %d
  last month: %d

Places
  distinct locations: %d

Media
  with photo: %d
  with voice note: %d

Last memory: %s`,
		s.LastUpdated.Format("2006-01-02 15:04"),
		s.TotalMemories,
		s.MemoriesLastWeek,
		s.MemoriesLastMonth,
		s.DistinctLocations,
		s.WithPhoto,
		s.WithVoiceNote,
		formatLastMemory(s.LastMemoryTime),
	)
}

func formatLastMemory(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	duration := time.Since(t)
	if duration < time.Hour {
		return "just now"
	}
	if duration < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	}
	if duration < 7*24*time.Hour {
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	}
	return t.Format("2006-01-02")
}

package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MatchStatus is the final state of a match job.
type MatchStatus string

const (
	StatusSucceeded MatchStatus = "succeeded"
	StatusRejected  MatchStatus = "rejected" // bad input: empty table or no rows
	StatusFailed    MatchStatus = "failed"
)

// MatchRecord is one entry of the match history.
type MatchRecord struct {
	ID        string        `json:"id"`
	File1Name string        `json:"file1Name"`
	File2Name string        `json:"file2Name"`
	Status    MatchStatus   `json:"status"`
	Rows      int           `json:"rows"`
	Columns   int           `json:"columns"`
	Error     string        `json:"error,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
	IPAddress string        `json:"ipAddress,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	Duration  time.Duration `json:"durationNs"`
	CreatedAt time.Time     `json:"createdAt"`
}

// HistoryStore persists match history.
type HistoryStore interface {
	Record(ctx context.Context, rec MatchRecord) error
	Recent(ctx context.Context, limit int) ([]MatchRecord, error)
	Get(ctx context.Context, id string) (*MatchRecord, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ErrMatchNotFound is returned by HistoryStore.Get for an unknown ID.
var ErrMatchNotFound = errors.New("match not found")

// MemoryHistory keeps the most recent match records in memory.
// It is used when no database is configured.
type MemoryHistory struct {
	mu      sync.RWMutex
	records []MatchRecord
	max     int
}

// NewMemoryHistory creates a store holding at most max records (default 1000).
func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = 1000
	}
	return &MemoryHistory{max: max}
}

func (h *MemoryHistory) Record(_ context.Context, rec MatchRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if over := len(h.records) - h.max; over > 0 {
		h.records = append([]MatchRecord(nil), h.records[over:]...)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (h *MemoryHistory) Recent(_ context.Context, limit int) ([]MatchRecord, error) {
	h.mu.RLock()
	out := make([]MatchRecord, len(h.records))
	copy(out, h.records)
	h.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *MemoryHistory) Get(_ context.Context, id string) (*MatchRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := range h.records {
		if h.records[i].ID == id {
			rec := h.records[i]
			return &rec, nil
		}
	}
	return nil, ErrMatchNotFound
}

func (h *MemoryHistory) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.records[:0]
	var purged int64
	for _, rec := range h.records {
		if rec.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, rec)
	}
	h.records = kept
	return purged, nil
}

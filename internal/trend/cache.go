package trend

import (
	"context"
	"sync/atomic"
	"time"

	"trend-radar/internal/model"
)

// CacheState is the single slot holding the most recent generated batch.
type CacheState struct {
	Value     []model.RichTrend `json:"value"`
	WrittenAt time.Time         `json:"writtenAt"`
}

// Fresh reports whether the slot can still be served. A ttl <= 0 disables
// caching and is never fresh.
func (s CacheState) Fresh(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || s.WrittenAt.IsZero() || len(s.Value) == 0 {
		return false
	}
	return now.Sub(s.WrittenAt) < ttl
}

// BatchCache stores the slot.
type BatchCache interface {
	Load(ctx context.Context) (CacheState, bool, error)
	Store(ctx context.Context, s CacheState) error
}

// MemoryCache is an in-process slot with atomic replacement.
type MemoryCache struct {
	slot atomic.Pointer[CacheState]
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

func (m *MemoryCache) Load(context.Context) (CacheState, bool, error) {
	p := m.slot.Load()
	if p == nil {
		return CacheState{}, false, nil
	}
	return *p, true, nil
}

func (m *MemoryCache) Store(_ context.Context, s CacheState) error {
	cp := s
	cp.Value = append([]model.RichTrend(nil), s.Value...)
	m.slot.Store(&cp)
	return nil
}

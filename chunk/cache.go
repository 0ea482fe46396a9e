package chunk

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// CachedSource keeps raw chunk payloads in memory so a chunk that is
// unloaded and re-entered soon after does not hit the backing source.
type CachedSource struct {
	next  Source
	cache *ristretto.Cache[string, []byte]
	ttl   time.Duration
}

func NewCachedSource(next Source, maxBytes int64, ttl time.Duration) (*CachedSource, error) {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	cache, err := ristretto.NewCache[string, []byte](&ristretto.Config[string, []byte]{
		NumCounters: 10000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("chunk: new cache: %w", err)
	}
	return &CachedSource{next: next, cache: cache, ttl: ttl}, nil
}

func (s *CachedSource) Fetch(ctx context.Context, coord Coord) ([]byte, error) {
	key := coord.Key()
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}
	data, err := s.next.Fetch(ctx, coord)
	if err != nil {
		return nil, err
	}
	cost := int64(len(data))
	if cost == 0 {
		cost = 1
	}
	if s.ttl > 0 {
		s.cache.SetWithTTL(key, data, cost, s.ttl)
	} else {
		s.cache.Set(key, data, cost)
	}
	s.cache.Wait()
	return data, nil
}

// Invalidate forgets coord so the next fetch reads the backing source.
func (s *CachedSource) Invalidate(coord Coord) {
	s.cache.Del(coord.Key())
}

func (s *CachedSource) Close() {
	s.cache.Close()
}

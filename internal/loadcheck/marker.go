// Package loadcheck drives the counter endpoint and verifies that no count is handed out twice.
package loadcheck

import (
	"strconv"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

// CountMarker remembers every count returned by the endpoint.
// A count that is marked twice means two visits were handed the same value.
type CountMarker struct {
	cache *cache.Cache

	mu         sync.Mutex
	counts     []int64
	duplicates []int64
}

func NewCountMarker() *CountMarker {
	return &CountMarker{cache: cache.New(cache.NoExpiration, 0)}
}

// Mark returns false when n was already seen.
func (m *CountMarker) Mark(n int64) bool {
	first := m.cache.Add(strconv.FormatInt(n, 10), struct{}{}, cache.NoExpiration) == nil

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = append(m.counts, n)
	if !first {
		m.duplicates = append(m.duplicates, n)
	}
	return first
}

type Summary struct {
	Hits       int
	Min        int64
	Max        int64
	Duplicates []int64
	// Gaps is the number of values in [Min, Max] no hit of this run received.
	// Other visitors hitting the endpoint concurrently show up here.
	Gaps int64
}

func (m *CountMarker) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.counts) == 0 {
		return Summary{}
	}

	s := Summary{
		Hits:       len(m.counts),
		Min:        lo.Min(m.counts),
		Max:        lo.Max(m.counts),
		Duplicates: lo.Uniq(m.duplicates),
	}
	s.Gaps = s.Max - s.Min + 1 - int64(len(lo.Uniq(m.counts)))
	return s
}

package store

import (
	"sort"
	"sync"
	"time"

	"github.com/i474232898/wxarchive/internal/weather"
)

var (
	// ErrNotFound is returned when no archive data matches a query.
	ErrNotFound = weather.ErrNotFound
)

// MemoryStore is a concurrency-safe in-memory archive ordered by timestamp.
type MemoryStore struct {
	mu sync.RWMutex

	// records are kept sorted by DateTime; index maps unix seconds to position.
	records []weather.Record
	index   map[int64]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[int64]int),
	}
}

// Has reports whether a record with timestamp ts exists.
func (s *MemoryStore) Has(ts time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[ts.Unix()]
	return ok
}

// SaveRecords inserts records, replacing existing ones only when overwrite is set.
func (s *MemoryStore) SaveRecords(records []weather.Record, overwrite bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(records, overwrite), nil
}

func (s *MemoryStore) saveLocked(records []weather.Record, overwrite bool) int {
	saved := 0
	appendOnly := true
	for _, r := range records {
		key := r.DateTime.Unix()
		if pos, ok := s.index[key]; ok {
			if overwrite {
				s.records[pos] = r.Clone()
				saved++
			}
			continue
		}
		if n := len(s.records); n > 0 && !r.DateTime.After(s.records[n-1].DateTime) {
			appendOnly = false
		}
		s.records = append(s.records, r.Clone())
		s.index[key] = len(s.records) - 1
		saved++
	}

	if !appendOnly {
		sort.SliceStable(s.records, func(i, j int) bool {
			return s.records[i].DateTime.Before(s.records[j].DateTime)
		})
		for i, r := range s.records {
			s.index[r.DateTime.Unix()] = i
		}
	}
	return saved
}

// Latest returns the most recent archive record.
func (s *MemoryStore) Latest() (weather.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return weather.Record{}, ErrNotFound
	}
	return s.records[len(s.records)-1].Clone(), nil
}

// Range returns all records between from and to (inclusive).
func (s *MemoryStore) Range(from, to time.Time) ([]weather.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.records), func(i int) bool {
		return !s.records[i].DateTime.Before(from)
	})
	var result []weather.Record
	for i := start; i < len(s.records) && !s.records[i].DateTime.After(to); i++ {
		result = append(result, s.records[i].Clone())
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Len returns the number of archived records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// clone returns an independent copy of the store.
func (s *MemoryStore) clone() *MemoryStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &MemoryStore{
		records: make([]weather.Record, len(s.records)),
		index:   make(map[int64]int, len(s.index)),
	}
	copy(c.records, s.records)
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}

// replace swaps in the contents of other, which must not be used afterwards.
func (s *MemoryStore) replace(other *MemoryStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = other.records
	s.index = other.index
}

package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStateRepository keeps guard keys and cache entries in process.
// Expired entries are dropped lazily on access.
type MemoryStateRepository struct {
	mu     sync.Mutex
	guards map[string]time.Time
	cache  map[string]memoryEntry
	now    func() time.Time
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{
		guards: make(map[string]time.Time),
		cache:  make(map[string]memoryEntry),
		now:    time.Now,
	}
}

func (r *MemoryStateRepository) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if until, ok := r.guards[key]; ok && now.Before(until) {
		return false, nil
	}
	r.sweepGuards(now)
	r.guards[key] = now.Add(ttl)
	return true, nil
}

func (r *MemoryStateRepository) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.guards, key)
	return nil
}

// sweepGuards drops expired guard keys. Caller holds mu.
func (r *MemoryStateRepository) sweepGuards(now time.Time) {
	for k, until := range r.guards {
		if !now.Before(until) {
			delete(r.guards, k)
		}
	}
}

func (r *MemoryStateRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache[key]
	if !ok {
		return nil, nil
	}
	if entry.expired(r.now()) {
		delete(r.cache, key)
		return nil, nil
	}
	return entry.data, nil
}

func (r *MemoryStateRepository) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := memoryEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.cache[key] = entry
	return nil
}

func (r *MemoryStateRepository) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		delete(r.cache, k)
	}
	return nil
}

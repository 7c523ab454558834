package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Store implementation backing local development
// (no STATE_STORE_URL configured) and unit tests. It is not a substitute for
// RedisStore in any multi-process deployment.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) expiredLocked(key string) bool {
	e, ok := m.entries[key]
	if !ok {
		return true
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return true
	}
	return false
}

func (m *Memory) Get(ctx context.Context, key string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.expiredLocked(key) {
		return ErrNotFound
	}
	return json.Unmarshal(m.entries[key].data, out)
}

func (m *Memory) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = memoryEntry{data: data, expiresAt: expiresAt}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) TryClaimWinner(ctx context.Context, matchID, playerID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := winnerKey(matchID)
	if !m.expiredLocked(key) {
		return false, nil
	}

	claim := WinnerClaim{PlayerID: playerID, ClaimedAt: time.Now()}
	data, err := json.Marshal(claim)
	if err != nil {
		return false, err
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = memoryEntry{data: data, expiresAt: expiresAt}
	return true, nil
}

func (m *Memory) ReadWinner(ctx context.Context, matchID string) (*WinnerClaim, error) {
	var claim WinnerClaim
	if err := m.Get(ctx, winnerKey(matchID), &claim); err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}

var _ Store = (*Memory)(nil)

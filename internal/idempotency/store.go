// Package idempotency хранит результаты оформления по ключу Idempotency-Key,
// чтобы повтор того же запроса вернул тот же чек, а не списал остатки ещё раз.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"

	"checkngo/internal/domain"
)

var (
	// ErrInProgress попытка с этим ключом ещё выполняется
	ErrInProgress = errors.New("request with this idempotency key is still in progress")
	ErrEmptyKey   = errors.New("empty idempotency key")
)

// Store резервирует ключ на время попытки и запоминает выданный чек.
type Store interface {
	// Begin резервирует key. Если по ключу уже выдан чек, возвращает его
	// (повтор); если попытка ещё идёт, ErrInProgress; иначе (nil, nil).
	Begin(ctx context.Context, key string) (*domain.Bill, error)
	// Complete сохраняет чек по зарезервированному ключу
	Complete(ctx context.Context, key string, bill domain.Bill) error
	// Release снимает резерв после отменённой попытки
	Release(ctx context.Context, key string) error
}

type memoryEntry struct {
	bill    *domain.Bill
	expires time.Time
}

// MemoryStore хранит ключи в памяти процесса, с истечением по TTL.
// Истёкшие записи вычищаются из Begin не чаще раза в sweepEvery.
type MemoryStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	entries    map[string]memoryEntry
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{
		ttl:        ttl,
		sweepEvery: min(ttl, time.Minute),
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
	}
}

// sweep удаляет истёкшие записи; вызывается под m.mu
func (m *MemoryStore) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.sweepEvery {
		return
	}
	m.lastSweep = now
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
}

func (m *MemoryStore) Begin(_ context.Context, key string) (*domain.Bill, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	if e, ok := m.entries[key]; ok && now.Before(e.expires) {
		if e.bill == nil {
			return nil, ErrInProgress
		}
		cp := *e.bill
		return &cp, nil
	}
	m.entries[key] = memoryEntry{expires: now.Add(m.ttl)}
	return nil, nil
}

func (m *MemoryStore) Complete(_ context.Context, key string, bill domain.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{bill: &bill, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && e.bill == nil {
		delete(m.entries, key)
	}
	return nil
}

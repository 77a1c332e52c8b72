package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"checkngo/internal/domain"
)

// MemoryStore in-memory каталог: товары, магазины и простой генератор ID.
// Условная запись остатка выполняется под одной блокировкой записи,
// поэтому сравнение и обновление атомарны.
type MemoryStore struct {
	mu           sync.RWMutex
	nextProdID   int64
	productsByID map[int64]domain.Product
	storesByID   map[int64]domain.Store
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:   1,
		productsByID: make(map[int64]domain.Product),
		storesByID:   make(map[int64]domain.Store),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Ensure interfaces
var _ Catalog = (*MemoryStore)(nil)

func cloneProduct(p domain.Product) *domain.Product {
	cp := p
	if p.Tags != nil {
		cp.Tags = append([]string(nil), p.Tags...)
	}
	return &cp
}

func (m *MemoryStore) Create(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	if p.ID == 0 {
		for {
			if _, taken := m.productsByID[m.nextProdID]; !taken {
				break
			}
			m.nextProdID++
		}
		p.ID = m.nextProdID
		m.nextProdID++
	} else if _, exists := m.productsByID[p.ID]; exists {
		return ErrDuplicateID
	}
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.productsByID[p.ID] = *cloneProduct(*p)
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	return cloneProduct(p), nil
}

func (m *MemoryStore) Update(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.productsByID[p.ID]
	if !ok {
		return ErrNotFound
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = m.now()
	m.productsByID[p.ID] = *cloneProduct(*p)
	return nil
}

func (m *MemoryStore) UpdateStock(_ context.Context, id, expected, newStock int64) (*domain.Product, error) {
	if newStock < 0 {
		return nil, ErrInvalidStock
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Stock != expected {
		return nil, ErrConflict
	}
	p.Stock = newStock
	p.UpdatedAt = m.now()
	m.productsByID[id] = p
	return cloneProduct(p), nil
}

func (m *MemoryStore) SetStock(_ context.Context, id, newStock int64) (*domain.Product, error) {
	if newStock < 0 {
		return nil, ErrInvalidStock
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Stock = newStock
	p.UpdatedAt = m.now()
	m.productsByID[id] = p
	return cloneProduct(p), nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context, f ProductFilter) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if !matchesFilter(p, f) {
			continue
		}
		out = append(out, *cloneProduct(p))
	}
	SortByID(out)
	return out, nil
}

// PutStore добавляет или заменяет магазин в справочнике
func (m *MemoryStore) PutStore(_ context.Context, s domain.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storesByID[s.ID] = s
	return nil
}

func (m *MemoryStore) ListStores(_ context.Context) ([]domain.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Store, 0, len(m.storesByID))
	for _, s := range m.storesByID {
		out = append(out, s)
	}
	sortStores(out)
	return out, nil
}

func (m *MemoryStore) GetStoreByName(_ context.Context, name string) (*domain.Store, error) {
	want := NormalizeStoreName(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.storesByID {
		if strings.EqualFold(s.Name, want) {
			cp := s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Close() error { return nil }

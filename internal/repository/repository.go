package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"checkngo/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrConflict условная запись не прошла: остаток изменился после чтения
	ErrConflict = errors.New("stock modified concurrently")
	// ErrInvalidStock попытка записать отрицательный остаток
	ErrInvalidStock = errors.New("stock cannot be negative")
	// ErrDuplicateID товар с таким id уже есть
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnavailable хранилище недоступно (сеть, БД, открытый breaker)
	ErrUnavailable = errors.New("product store unavailable")
)

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	TitleSubstring string
	Category       string
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
}

// StockStore минимальный контракт, нужный движку списания
type StockStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// UpdateStock пишет newStock, только если текущий остаток равен expected
	UpdateStock(ctx context.Context, id, expected, newStock int64) (*domain.Product, error)
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	StockStore
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	// SetStock безусловная запись остатка (ручная правка админом)
	SetStock(ctx context.Context, id, newStock int64) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

// StoreRepository справочник магазинов, только чтение
type StoreRepository interface {
	ListStores(ctx context.Context) ([]domain.Store, error)
	GetStoreByName(ctx context.Context, name string) (*domain.Store, error)
}

// Catalog объединяет товары и магазины одного бэкенда
type Catalog interface {
	ProductRepository
	StoreRepository
	// PutStore добавляет или заменяет магазин (загрузка справочника)
	PutStore(ctx context.Context, s domain.Store) error
	Close() error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchesFilter(p domain.Product, f ProductFilter) bool {
	if !containsIgnoreCase(p.Title, f.TitleSubstring) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// SortByID одинаковый порядок List во всех хранилищах
func SortByID(list []domain.Product) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

// RankSearch оставляет товары, в названии которых есть query, и сортирует их:
// сначала те, что начинаются с query, затем остальные; внутри групп
// по названию без учёта регистра.
func RankSearch(products []domain.Product, query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), q) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Title), strings.ToLower(out[j].Title)
		ap, bp := strings.HasPrefix(a, q), strings.HasPrefix(b, q)
		if ap != bp {
			return ap
		}
		return a < b
	})
	return out
}

// NormalizeStoreName превращает slug из URL ("store-one") в имя магазина ("store one")
func NormalizeStoreName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, "-", " "))
}

func sortStores(list []domain.Store) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

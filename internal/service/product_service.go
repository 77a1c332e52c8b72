package service

import (
	"context"
	"errors"
	"strings"

	"checkngo/internal/domain"
	"checkngo/internal/repository"
)

// ProductService инкапсулирует бизнес-логику каталога: товары и справочник магазинов
type ProductService struct {
	repo   repository.ProductRepository
	stores repository.StoreRepository
}

func NewProductService(repo repository.ProductRepository, stores repository.StoreRepository) *ProductService {
	return &ProductService{repo: repo, stores: stores}
}

var ErrInvalidInput = errors.New("invalid input")

func validProduct(p domain.Product) bool {
	return strings.TrimSpace(p.Title) != "" && !p.Price.IsNegative() && p.Stock >= 0
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if !validProduct(p) || p.ID < 0 {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID <= 0 || !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// SetStock пишет остаток. С expected — условная запись (ErrConflict, если
// остаток успел измениться), без него безусловная, как в админке.
func (s *ProductService) SetStock(ctx context.Context, id, stock int64, expected *int64) (*domain.Product, error) {
	if id <= 0 || stock < 0 {
		return nil, ErrInvalidInput
	}
	if expected != nil {
		return s.repo.UpdateStock(ctx, id, *expected, stock)
	}
	return s.repo.SetStock(ctx, id, stock)
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, ErrInvalidInput
	}
	return s.repo.List(ctx, f)
}

// Search для поиска при сборке корзины: сначала совпадения с начала названия
func (s *ProductService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}, nil
	}
	list, err := s.repo.List(ctx, repository.ProductFilter{TitleSubstring: query})
	if err != nil {
		return nil, err
	}
	return repository.RankSearch(list, query), nil
}

func (s *ProductService) ListStores(ctx context.Context) ([]domain.Store, error) {
	return s.stores.ListStores(ctx)
}

func (s *ProductService) GetStore(ctx context.Context, name string) (*domain.Store, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidInput
	}
	return s.stores.GetStoreByName(ctx, name)
}

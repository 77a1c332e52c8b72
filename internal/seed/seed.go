// Package seed загружает демонстрационный справочник магазинов и каталог.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"checkngo/internal/domain"
	"checkngo/internal/repository"
)

//go:embed demo.json
var demoJSON []byte

type Target interface {
	Create(ctx context.Context, p *domain.Product) error
	List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error)
	PutStore(ctx context.Context, s domain.Store) error
}

type Data struct {
	Stores   []domain.Store   `json:"stores"`
	Products []domain.Product `json:"products"`
}

func Demo() (Data, error) {
	var d Data
	if err := json.Unmarshal(demoJSON, &d); err != nil {
		return Data{}, fmt.Errorf("decode demo data: %w", err)
	}
	return d, nil
}

// Load пишет магазины (upsert) и товары. Товары загружаются только в пустой
// каталог, существующие остатки не перезаписываются. Возвращает число
// добавленных товаров.
func Load(ctx context.Context, t Target, d Data) (int, error) {
	for _, s := range d.Stores {
		if err := t.PutStore(ctx, s); err != nil {
			return 0, fmt.Errorf("put store %q: %w", s.Name, err)
		}
	}
	existing, err := t.List(ctx, repository.ProductFilter{})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	n := 0
	for _, p := range d.Products {
		p := p
		err := t.Create(ctx, &p)
		if errors.Is(err, repository.ErrDuplicateID) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("create product %d: %w", p.ID, err)
		}
		n++
	}
	return n, nil
}

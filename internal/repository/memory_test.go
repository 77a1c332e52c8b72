package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"checkngo/internal/domain"
)

func TestMemoryStore_Contract(t *testing.T) {
	runCatalogContract(t, func(t *testing.T) Catalog { return NewMemoryStore() })
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Title: "A", Price: decimal.NewFromInt(10), Stock: 5, Tags: []string{"x"}}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := store.GetByID(ctx, p.ID)
	got.Stock = 0
	got.Tags[0] = "changed"

	again, _ := store.GetByID(ctx, p.ID)
	if again.Stock != 5 || again.Tags[0] != "x" {
		t.Fatalf("store state leaked through returned product: %+v", again)
	}
}

func TestMemoryStore_SkipsTakenIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := domain.Product{ID: 1, Title: "explicit", Stock: 1}
	if err := store.Create(ctx, &first); err != nil {
		t.Fatal(err)
	}
	next := domain.Product{Title: "auto", Stock: 1}
	if err := store.Create(ctx, &next); err != nil {
		t.Fatal(err)
	}
	if next.ID != 2 {
		t.Fatalf("expected id 2, got %d", next.ID)
	}
}

func TestRankSearch(t *testing.T) {
	list := []domain.Product{
		{ID: 1, Title: "Orange Juice"},
		{ID: 2, Title: "juice box"},
		{ID: 3, Title: "Bread"},
		{ID: 4, Title: "Apple juice"},
		{ID: 5, Title: "Juicer"},
	}
	got := RankSearch(list, "Juice")
	want := []string{"juice box", "Juicer", "Apple juice", "Orange Juice"}
	if len(got) != len(want) {
		t.Fatalf("want %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Title != want[i] {
			t.Fatalf("position %d: want %q, got %q", i, want[i], got[i].Title)
		}
	}
}

func TestNormalizeStoreName(t *testing.T) {
	if got := NormalizeStoreName(" store-one "); got != "store one" {
		t.Fatalf("got %q", got)
	}
}

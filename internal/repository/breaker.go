package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"checkngo/internal/domain"
)

// BreakerSettings параметры circuit breaker-а вокруг хранилища остатков
type BreakerSettings struct {
	// ConsecutiveFailures сколько транспортных ошибок подряд размыкают цепь
	ConsecutiveFailures uint32
	// OpenTimeout сколько цепь остаётся разомкнутой до пробного запроса
	OpenTimeout time.Duration
}

// Breaker оборачивает StockStore: транспортные ошибки считаются отказами,
// а NotFound/Conflict считаются нормальными ответами хранилища.
type Breaker struct {
	next StockStore
	read *gobreaker.CircuitBreaker[*domain.Product]
}

var _ StockStore = (*Breaker)(nil)

func NewBreaker(next StockStore, st BreakerSettings, log *slog.Logger) *Breaker {
	if st.ConsecutiveFailures == 0 {
		st.ConsecutiveFailures = 5
	}
	if st.OpenTimeout == 0 {
		st.OpenTimeout = 10 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[*domain.Product](gobreaker.Settings{
		Name:        "product-store",
		MaxRequests: 1,
		Timeout:     st.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= st.ConsecutiveFailures
		},
		IsSuccessful: isStoreHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Breaker{next: next, read: cb}
}

// isStoreHealthy: отказом считаются только ошибки, за которыми нет ответа хранилища
func isStoreHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidStock)
}

func (b *Breaker) exec(fn func() (*domain.Product, error)) (*domain.Product, error) {
	p, err := b.read.Execute(fn)
	if err == nil || isStoreHealthy(err) {
		return p, err
	}
	if errors.Is(err, ErrUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func (b *Breaker) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return b.exec(func() (*domain.Product, error) { return b.next.GetByID(ctx, id) })
}

func (b *Breaker) UpdateStock(ctx context.Context, id, expected, newStock int64) (*domain.Product, error) {
	return b.exec(func() (*domain.Product, error) { return b.next.UpdateStock(ctx, id, expected, newStock) })
}

// State отдаёт текущее состояние цепи (для /health)
func (b *Breaker) State() string {
	return b.read.State().String()
}

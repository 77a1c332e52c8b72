// Package inventory списывает остатки по корзине: построчно, в порядке корзины,
// через условную запись (optimistic concurrency) в хранилище товаров.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"checkngo/internal/domain"
	"checkngo/internal/repository"
)

//go:generate mockgen -destination mock_store_test.go -package inventory checkngo/internal/repository StockStore

// ErrInvalidLine нарушено предусловие строки корзины (количество <= 0).
// Возвращается до любого обращения к хранилищу.
var ErrInvalidLine = errors.New("invalid cart line")

// Outcome итог обработки строки
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped строка после упавшей, к хранилищу не обращались
	OutcomeSkipped Outcome = "skipped"
)

// FailureKind причина отказа по строке
type FailureKind string

const (
	FailInsufficientStock FailureKind = "insufficient_stock"
	FailNotFound          FailureKind = "not_found"
	FailConflict          FailureKind = "conflict"
	FailUnavailable       FailureKind = "store_unavailable"
)

// Failure описывает, почему строка не списалась
type Failure struct {
	Kind      FailureKind `json:"kind"`
	ProductID int64       `json:"product_id"`
	Requested int64       `json:"requested"`
	Available int64       `json:"available"`
	Err       error       `json:"-"`
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailInsufficientStock:
		return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", f.ProductID, f.Requested, f.Available)
	case FailNotFound:
		return fmt.Sprintf("product %d not found", f.ProductID)
	case FailConflict:
		return fmt.Sprintf("stock for product %d kept changing during checkout", f.ProductID)
	default:
		return fmt.Sprintf("product store unavailable for product %d: %v", f.ProductID, f.Err)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// LineResult результат по одной строке корзины
type LineResult struct {
	Line          domain.CartLine `json:"line"`
	Outcome       Outcome         `json:"outcome"`
	Product       *domain.Product `json:"-"`
	PreviousStock int64           `json:"previous_stock,omitempty"`
	NewStock      int64           `json:"new_stock,omitempty"`
	Retries       int             `json:"retries,omitempty"`
	Failure       *Failure        `json:"failure,omitempty"`
}

// DecrementResult результаты в порядке строк корзины
type DecrementResult struct {
	Lines []LineResult
}

// AllCommitted true, если списаны все строки
func (r DecrementResult) AllCommitted() bool {
	for _, l := range r.Lines {
		if l.Outcome != OutcomeCommitted {
			return false
		}
	}
	return len(r.Lines) > 0
}

// FirstFailure первая упавшая строка или nil
func (r DecrementResult) FirstFailure() *Failure {
	for _, l := range r.Lines {
		if l.Failure != nil {
			return l.Failure
		}
	}
	return nil
}

// Committed строки, чьё списание уже записано в хранилище
func (r DecrementResult) Committed() []LineResult {
	out := make([]LineResult, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.Outcome == OutcomeCommitted {
			out = append(out, l)
		}
	}
	return out
}

// Options настройки движка
type Options struct {
	// ConflictRetries сколько раз перечитать и повторить запись после ErrConflict
	ConflictRetries int
	// CallTimeout ограничивает каждое обращение к хранилищу; 0 без ограничения
	CallTimeout time.Duration
}

// Engine движок списания остатков
type Engine struct {
	store repository.StockStore
	opts  Options
	log   *slog.Logger
}

func NewEngine(store repository.StockStore, opts Options, log *slog.Logger) *Engine {
	if opts.ConflictRetries < 0 {
		opts.ConflictRetries = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, opts: opts, log: log}
}

func (e *Engine) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, e.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) get(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	return e.store.GetByID(ctx, id)
}

func (e *Engine) put(ctx context.Context, id, expected, newStock int64) (*domain.Product, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	return e.store.UpdateStock(ctx, id, expected, newStock)
}

// ReserveAndDecrement списывает строки по порядку. На первой неудаче
// остальные строки помечаются skipped; уже списанные строки не
// откатываются (см. Compensate).
func (e *Engine) ReserveAndDecrement(ctx context.Context, lines []domain.CartLine) (DecrementResult, error) {
	for i, l := range lines {
		if l.Quantity <= 0 {
			return DecrementResult{}, fmt.Errorf("%w: line %d quantity %d", ErrInvalidLine, i, l.Quantity)
		}
	}

	res := DecrementResult{Lines: make([]LineResult, len(lines))}
	failed := false
	for i, l := range lines {
		if failed {
			res.Lines[i] = LineResult{Line: l, Outcome: OutcomeSkipped}
			continue
		}
		res.Lines[i] = e.decrementLine(ctx, l)
		failed = res.Lines[i].Outcome == OutcomeFailed
	}
	return res, nil
}

func (e *Engine) decrementLine(ctx context.Context, l domain.CartLine) LineResult {
	lr := LineResult{Line: l}
	fail := func(kind FailureKind, available int64, err error) LineResult {
		lr.Outcome = OutcomeFailed
		lr.Failure = &Failure{Kind: kind, ProductID: l.ProductID, Requested: l.Quantity, Available: available, Err: err}
		return lr
	}

	for attempt := 0; ; attempt++ {
		p, err := e.get(ctx, l.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return fail(FailNotFound, 0, err)
		}
		if err != nil {
			return fail(FailUnavailable, 0, err)
		}
		if l.Quantity > p.Stock {
			return fail(FailInsufficientStock, p.Stock, nil)
		}

		updated, err := e.put(ctx, l.ProductID, p.Stock, p.Stock-l.Quantity)
		switch {
		case err == nil:
			lr.Outcome = OutcomeCommitted
			lr.Product = updated
			lr.PreviousStock = p.Stock
			lr.NewStock = updated.Stock
			return lr
		case errors.Is(err, repository.ErrConflict):
			if attempt >= e.opts.ConflictRetries {
				return fail(FailConflict, p.Stock, err)
			}
			lr.Retries++
			e.log.Debug("stock conflict, retrying", "product_id", l.ProductID, "attempt", attempt+1)
		case errors.Is(err, repository.ErrNotFound):
			return fail(FailNotFound, 0, err)
		case errors.Is(err, repository.ErrInvalidStock):
			return fail(FailInsufficientStock, p.Stock, err)
		default:
			return fail(FailUnavailable, p.Stock, err)
		}
	}
}

// maxCompensationAttempts сколько раз повторять возврат одной строки при конфликтах
const maxCompensationAttempts = 10

// Compensate возвращает на склад всё, что списали строки с outcome committed,
// в обратном порядке. Возврат тоже условная запись «текущий + количество»,
// поэтому параллельные продажи того же товара не затираются.
func (e *Engine) Compensate(ctx context.Context, res DecrementResult) error {
	committed := res.Committed()
	var errs []error
	for i := len(committed) - 1; i >= 0; i-- {
		l := committed[i].Line
		if err := e.restoreLine(ctx, l.ProductID, l.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("restore product %d (+%d): %w", l.ProductID, l.Quantity, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) restoreLine(ctx context.Context, id, qty int64) error {
	for attempt := 0; attempt < maxCompensationAttempts; attempt++ {
		p, err := e.get(ctx, id)
		if err != nil {
			return err
		}
		_, err = e.put(ctx, id, p.Stock, p.Stock+qty)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	return repository.ErrConflict
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"checkngo/internal/billing"
	"checkngo/internal/domain"
	"checkngo/internal/inventory"
	"checkngo/internal/repository"
)

// CheckoutState состояние попытки оформления чека. Переходы только вперёд.
type CheckoutState string

const (
	StateCollecting   CheckoutState = "collecting"
	StateValidating   CheckoutState = "validating"
	StateDecrementing CheckoutState = "decrementing"
	StateBilling      CheckoutState = "billing"
	StateCompleted    CheckoutState = "completed"
	StateAborted      CheckoutState = "aborted"
)

// AbortReason почему попытка завершилась без чека
type AbortReason string

const (
	ReasonValidationFailed AbortReason = "validation_failed"
	ReasonStockConflict    AbortReason = "stock_conflict"
	ReasonStoreUnavailable AbortReason = "store_unavailable"
)

// AbortError единственный вид ошибки, который возвращает SubmitCheckout
type AbortError struct {
	Reason AbortReason
	// Messages человекочитаемые сообщения для кассира
	Messages []string
	// Lines результаты списания по строкам (пусто для validation_failed)
	Lines []inventory.LineResult
	// RolledBack уже списанные строки были возвращены на склад
	RolledBack bool
	Err        error
}

func (e *AbortError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("checkout aborted (%s): %s", e.Reason, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("checkout aborted (%s)", e.Reason)
}

func (e *AbortError) Unwrap() error { return e.Err }

// CheckoutRequest то, что кассир отправляет при оформлении
type CheckoutRequest struct {
	StoreName     string
	Customer      domain.Customer
	PaymentMethod domain.PaymentMethod
	Lines         []domain.CartLine
}

// Attempt одна попытка оформления. Принадлежит только вызову SubmitCheckout
// и передаётся по шагам явно.
type Attempt struct {
	ID      string
	State   CheckoutState
	Request CheckoutRequest
	Store   *domain.Store
	Result  inventory.DecrementResult
	Bill    *domain.Bill
	started time.Time
}

// BillPublisher получает каждый выданный чек (например, в Kafka)
type BillPublisher interface {
	PublishBillIssued(ctx context.Context, bill domain.Bill) error
}

// CheckoutObserver собирает метрики попыток
type CheckoutObserver interface {
	CheckoutFinished(outcome string, elapsed time.Duration)
	LineFailed(kind string)
	Compensated(ok bool)
}

// CheckoutOptions настройки оркестратора
type CheckoutOptions struct {
	// Compensate включает возврат уже списанных строк при отмене попытки
	Compensate bool
}

// CheckoutService последовательность: валидация → списание → чек
type CheckoutService struct {
	products repository.StockStore
	stores   repository.StoreRepository
	engine   *inventory.Engine
	opts     CheckoutOptions
	log      *slog.Logger

	publisher BillPublisher
	observer  CheckoutObserver
	now       func() time.Time
	newID     func() string
}

func NewCheckoutService(products repository.StockStore, stores repository.StoreRepository, engine *inventory.Engine, opts CheckoutOptions, log *slog.Logger) *CheckoutService {
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutService{
		products:  products,
		stores:    stores,
		engine:    engine,
		opts:      opts,
		log:       log,
		publisher: noopPublisher{},
		observer:  noopObserver{},
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
	}
}

// WithPublisher подключает публикацию выданных чеков
func (s *CheckoutService) WithPublisher(p BillPublisher) *CheckoutService {
	if p != nil {
		s.publisher = p
	}
	return s
}

// WithObserver подключает метрики
func (s *CheckoutService) WithObserver(o CheckoutObserver) *CheckoutService {
	if o != nil {
		s.observer = o
	}
	return s
}

type noopPublisher struct{}

func (noopPublisher) PublishBillIssued(context.Context, domain.Bill) error { return nil }

type noopObserver struct{}

func (noopObserver) CheckoutFinished(string, time.Duration) {}
func (noopObserver) LineFailed(string)                      {}
func (noopObserver) Compensated(bool)                       {}

const (
	msgStoreRequired     = "Please select a store."
	msgNameRequired      = "Customer name is required."
	msgPhoneRequired     = "Customer phone number is required."
	msgPhoneDigits       = "Phone number must be 10 digits."
	msgPaymentRequired   = "Payment method is required."
	msgPaymentInvalid    = "Payment method must be one of cash, upi, card."
	msgProductsRequired  = "Please select at least one product."
	msgQuantityExceeds   = "Quantity exceeds stock for:"
	msgStoreUnavailable  = "Product store is unavailable, please try again."
	msgCheckoutCancelled = "Stock could not be updated, please review the cart and submit again."
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// MergeLines сливает строки с одинаковым товаром: количества суммируются,
// порядок по первому вхождению.
func MergeLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	idx := make(map[int64]int, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			if out[i].Title == "" {
				out[i].Title = l.Title
			}
			if out[i].KnownStock == nil {
				out[i].KnownStock = l.KnownStock
			}
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// Validate проверяет поля формы и корзину. Побочных эффектов нет, поэтому
// повторный вызов на тех же данных даёт тот же результат. Ошибка возвращается
// только если недоступен справочник магазинов.
func (s *CheckoutService) Validate(ctx context.Context, req CheckoutRequest) (CheckoutRequest, *domain.Store, []string, error) {
	// количество проверяется до слияния: -2 не должно спрятаться в сумме с 3
	var qtyMsgs []string
	badQty := make(map[int64]bool)
	for _, l := range req.Lines {
		if l.Quantity < 1 && !badQty[l.ProductID] {
			badQty[l.ProductID] = true
			qtyMsgs = append(qtyMsgs, fmt.Sprintf("Quantity for product %d must be at least 1.", l.ProductID))
		}
	}
	req.Lines = MergeLines(req.Lines)
	var msgs []string
	var store *domain.Store

	storeName := strings.TrimSpace(req.StoreName)
	if storeName == "" {
		msgs = append(msgs, msgStoreRequired)
	} else {
		st, err := s.stores.GetStoreByName(ctx, storeName)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			msgs = append(msgs, fmt.Sprintf("Store %q not found.", storeName))
		case err != nil:
			return req, nil, nil, err
		default:
			store = st
		}
	}

	if strings.TrimSpace(req.Customer.Name) == "" {
		msgs = append(msgs, msgNameRequired)
	}
	if req.Customer.Phone == "" {
		msgs = append(msgs, msgPhoneRequired)
	} else if !phonePattern.MatchString(req.Customer.Phone) {
		msgs = append(msgs, msgPhoneDigits)
	}
	if req.PaymentMethod == "" {
		msgs = append(msgs, msgPaymentRequired)
	} else if !req.PaymentMethod.Valid() {
		msgs = append(msgs, msgPaymentInvalid)
	}
	if len(req.Lines) == 0 {
		msgs = append(msgs, msgProductsRequired)
	}

	msgs = append(msgs, qtyMsgs...)
	var exceeded []string
	for _, l := range req.Lines {
		if badQty[l.ProductID] {
			continue
		}
		if l.KnownStock != nil && l.Quantity > *l.KnownStock {
			title := l.Title
			if title == "" {
				title = fmt.Sprintf("product %d", l.ProductID)
			}
			exceeded = append(exceeded, fmt.Sprintf("- %s (Req: %d, Avail: %d)", title, l.Quantity, *l.KnownStock))
		}
	}
	if len(exceeded) > 0 {
		msgs = append(msgs, msgQuantityExceeds+"\n"+strings.Join(exceeded, "\n"))
	}
	return req, store, msgs, nil
}

// SubmitCheckout оформляет чек. Возвращает либо чек, либо *AbortError.
// После начала списания попытка доводится до конца даже при отмене ctx.
func (s *CheckoutService) SubmitCheckout(ctx context.Context, req CheckoutRequest) (*domain.Bill, error) {
	a := &Attempt{ID: s.newID(), State: StateCollecting, Request: req, started: s.now()}
	log := s.log.With("attempt_id", a.ID)

	a.State = StateValidating
	merged, store, msgs, err := s.Validate(ctx, req)
	a.Request = merged
	if err != nil {
		return nil, s.abort(log, a, &AbortError{Reason: ReasonStoreUnavailable, Messages: []string{msgStoreUnavailable}, Err: err})
	}
	if len(msgs) > 0 {
		return nil, s.abort(log, a, &AbortError{Reason: ReasonValidationFailed, Messages: msgs})
	}
	a.Store = store

	// дальше пишем в хранилище: запрос клиента больше не может прервать попытку
	ctx = context.WithoutCancel(ctx)

	a.State = StateDecrementing
	res, err := s.engine.ReserveAndDecrement(ctx, a.Request.Lines)
	if err != nil {
		// предусловия уже проверены валидацией; сюда не попадаем
		return nil, s.abort(log, a, &AbortError{Reason: ReasonValidationFailed, Messages: []string{err.Error()}, Err: err})
	}
	a.Result = res
	if f := res.FirstFailure(); f != nil {
		return nil, s.abortOnStock(ctx, log, a, f)
	}

	a.State = StateBilling
	bill := s.buildBill(a)
	a.Bill = &bill

	a.State = StateCompleted
	s.observer.CheckoutFinished(string(StateCompleted), s.now().Sub(a.started))
	log.Info("checkout completed",
		"bill_id", bill.ID,
		"store", bill.StoreName,
		"lines", len(bill.Items),
		"total", bill.Total.String(),
		"payment_method", bill.PaymentMethod,
	)
	if err := s.publisher.PublishBillIssued(ctx, bill); err != nil {
		log.Error("publish bill.issued failed", "bill_id", bill.ID, "error", err)
	}
	return &bill, nil
}

func (s *CheckoutService) abortOnStock(ctx context.Context, log *slog.Logger, a *Attempt, f *inventory.Failure) error {
	s.observer.LineFailed(string(f.Kind))
	ae := &AbortError{Reason: ReasonStockConflict, Lines: a.Result.Lines, Err: f}
	switch f.Kind {
	case inventory.FailUnavailable:
		ae.Reason = ReasonStoreUnavailable
		ae.Messages = []string{msgStoreUnavailable}
	case inventory.FailInsufficientStock:
		ae.Messages = []string{fmt.Sprintf("%s\n- %s (Req: %d, Avail: %d)", msgQuantityExceeds, s.lineTitle(a, f.ProductID), f.Requested, f.Available)}
	case inventory.FailNotFound:
		ae.Messages = []string{fmt.Sprintf("Product %d no longer exists.", f.ProductID)}
	default:
		ae.Messages = []string{msgCheckoutCancelled}
	}

	if committed := len(a.Result.Committed()); committed > 0 {
		if s.opts.Compensate {
			if err := s.engine.Compensate(ctx, a.Result); err != nil {
				log.Error("compensation failed, stock left decremented", "error", err)
				s.observer.Compensated(false)
			} else {
				ae.RolledBack = true
				s.observer.Compensated(true)
			}
		} else {
			log.Warn("checkout aborted with committed lines left decremented", "committed_lines", committed)
		}
	}
	return s.abort(log, a, ae)
}

func (s *CheckoutService) lineTitle(a *Attempt, productID int64) string {
	for _, l := range a.Request.Lines {
		if l.ProductID == productID && l.Title != "" {
			return l.Title
		}
	}
	return fmt.Sprintf("product %d", productID)
}

func (s *CheckoutService) abort(log *slog.Logger, a *Attempt, ae *AbortError) error {
	a.State = StateAborted
	s.observer.CheckoutFinished(string(ae.Reason), s.now().Sub(a.started))
	log.Info("checkout aborted",
		"reason", ae.Reason,
		"store", a.Request.StoreName,
		"lines", len(a.Request.Lines),
		"rolled_back", ae.RolledBack,
	)
	return ae
}

// buildBill: снимки названия и цены берутся из прочитанного при списании товара
func (s *CheckoutService) buildBill(a *Attempt) domain.Bill {
	lines := make([]billing.Line, 0, len(a.Result.Lines))
	for _, lr := range a.Result.Lines {
		lines = append(lines, billing.Line{
			ProductID: lr.Line.ProductID,
			Name:      lr.Product.Title,
			UnitPrice: lr.Product.Price,
			Quantity:  lr.Line.Quantity,
		})
	}
	bill := billing.Compute(lines, a.Request.PaymentMethod)
	bill.ID = a.ID
	bill.StoreName = billing.TitleCase(a.Store.Name)
	bill.CustomerName = billing.TitleCase(a.Request.Customer.Name)
	bill.CustomerPhone = a.Request.Customer.Phone
	bill.IssuedAt = s.now()
	return bill
}

// PreviewBill считает чек по текущим ценам каталога без списания:
// живой итог, пока кассир собирает корзину.
func (s *CheckoutService) PreviewBill(ctx context.Context, lines []domain.CartLine, method domain.PaymentMethod) (*domain.Bill, error) {
	if method == "" {
		method = domain.PaymentCash
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, msgPaymentInvalid)
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for product %d must be at least 1", ErrInvalidInput, l.ProductID)
		}
	}
	merged := MergeLines(lines)
	in := make([]billing.Line, 0, len(merged))
	for _, l := range merged {
		p, err := s.products.GetByID(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		in = append(in, billing.Line{ProductID: p.ID, Name: p.Title, UnitPrice: p.Price, Quantity: l.Quantity})
	}
	bill := billing.Compute(in, method)
	bill.IssuedAt = s.now()
	return &bill, nil
}

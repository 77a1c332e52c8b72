package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"checkngo/internal/domain"
	"checkngo/internal/idempotency"
	"checkngo/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

type cartLineReq struct {
	ProductID int64  `json:"product_id" binding:"gt=0"`
	Quantity  int64  `json:"quantity"`
	Title     string `json:"title"`
	// KnownStock остаток, который видел кассир при добавлении товара
	KnownStock *int64 `json:"known_stock"`
}

// checkoutReq: обязательность полей проверяет сервис, чтобы вернуть
// сообщения для кассира, а не ошибки биндинга
type checkoutReq struct {
	StoreName     string        `json:"store_name"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	PaymentMethod string        `json:"payment_method"`
	Items         []cartLineReq `json:"items" binding:"dive"`
}

func toCartLines(items []cartLineReq) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.CartLine{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			Title:      it.Title,
			KnownStock: it.KnownStock,
		})
	}
	return lines
}

// @Summary Submit checkout
// @Description Validates the form, decrements stock line by line in cart order and issues a bill.
// @Description A repeated Idempotency-Key returns the bill issued for it.
// @Tags checkout
// @Accept json
// @Produce json
// @Security AdminToken
// @Param Idempotency-Key header string false "Idempotency key"
// @Param input body checkoutReq true "Checkout"
// @Success 201 {object} domain.Bill
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 409 {object} abortResponse
// @Failure 422 {object} abortResponse
// @Failure 503 {object} abortResponse
// @Router /checkout [post]
func (s *Server) submitCheckout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
	if key != "" {
		prev, err := s.idem.Begin(c, key)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
			return
		case err != nil:
			s.log.Error("idempotency store failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "idempotency store unavailable"})
			return
		case prev != nil:
			c.Header("Idempotent-Replayed", "true")
			c.JSON(http.StatusCreated, prev)
			return
		}
	}

	bill, err := s.checkout.SubmitCheckout(c.Request.Context(), service.CheckoutRequest{
		StoreName: req.StoreName,
		Customer: domain.Customer{
			Name:  req.CustomerName,
			Phone: strings.TrimSpace(req.CustomerPhone),
		},
		PaymentMethod: domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		Lines:         toCartLines(req.Items),
	})

	if key != "" {
		// клиент мог уже отключиться, а ключ должен быть записан
		ctx := context.WithoutCancel(c.Request.Context())
		var idemErr error
		if err != nil {
			idemErr = s.idem.Release(ctx, key)
		} else {
			idemErr = s.idem.Complete(ctx, key, *bill)
		}
		if idemErr != nil {
			s.log.Error("idempotency store failed", "key", key, "error", idemErr)
		}
	}

	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bill)
}

type previewReq struct {
	PaymentMethod string        `json:"payment_method"`
	Items         []cartLineReq `json:"items" binding:"required,min=1,dive"`
}

// @Summary Preview bill
// @Description Prices the cart at current catalog prices without touching stock.
// @Tags checkout
// @Accept json
// @Produce json
// @Security AdminToken
// @Param input body previewReq true "Cart"
// @Success 200 {object} domain.Bill
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /bills/preview [post]
func (s *Server) previewBill(c *gin.Context) {
	var req previewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	bill, err := s.checkout.PreviewBill(c, toCartLines(req.Items), method)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// Package billing считает строки чека и итог с округлением по способу оплаты.
// Пакет не делает I/O и не хранит состояние.
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"checkngo/internal/domain"
)

// Line вход для расчёта: снимок товара и количество
type Line struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int64
}

// ItemTotal = unitPrice * quantity, без округления
func ItemTotal(unitPrice decimal.Decimal, quantity int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// RoundTotal: наличные округляются вверх до целого, остальное вверх до цента.
func RoundTotal(raw decimal.Decimal, method domain.PaymentMethod) decimal.Decimal {
	if method == domain.PaymentCash {
		return raw.Ceil()
	}
	return raw.RoundCeil(2)
}

// Compute строит позиции чека и итог. Заголовок (магазин, покупатель, id)
// заполняет вызывающий.
func Compute(lines []Line, method domain.PaymentMethod) domain.Bill {
	items := make([]domain.LineItem, 0, len(lines))
	raw := decimal.Zero
	for _, l := range lines {
		total := ItemTotal(l.UnitPrice, l.Quantity)
		items = append(items, domain.LineItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			ItemTotal: total,
		})
		raw = raw.Add(total)
	}
	return domain.Bill{
		PaymentMethod: method,
		Items:         items,
		Subtotal:      raw,
		Total:         RoundTotal(raw, method),
	}
}

// TitleCase "john DOE" -> "John Doe", как печатается в чеке
func TitleCase(s string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар в каталоге магазина
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Store точка продаж из справочника магазинов
type Store struct {
	ID        int64    `json:"id" bson:"id"`
	Name      string   `json:"name" bson:"name"`
	Locations []string `json:"locations,omitempty" bson:"locations,omitempty"`
	OpenTime  string   `json:"open_time,omitempty" bson:"open_time,omitempty"`
	CloseTime string   `json:"close_time,omitempty" bson:"close_time,omitempty"`
}

// PaymentMethod способ оплаты чека
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentUPI  PaymentMethod = "upi"
	PaymentCard PaymentMethod = "card"
)

// Valid true для cash, upi и card
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentUPI, PaymentCard:
		return true
	}
	return false
}

// CartLine позиция корзины; живёт только в рамках одной попытки оформления
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
	// Title и KnownStock снимок, который видел кассир при сборке корзины
	Title      string `json:"title,omitempty"`
	KnownStock *int64 `json:"known_stock,omitempty"`
}

// Customer данные покупателя для чека
type Customer struct {
	Name  string `json:"customer_name"`
	Phone string `json:"customer_phone"`
}

// LineItem строка чека со снимком названия и цены на момент списания
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	ItemTotal decimal.Decimal `json:"item_total"`
}

// Bill итоговый чек. После выдачи не изменяется.
type Bill struct {
	ID            string          `json:"id"`
	StoreName     string          `json:"store_name"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Items         []LineItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Total         decimal.Decimal `json:"total_amount"`
	IssuedAt      time.Time       `json:"issued_at"`
}

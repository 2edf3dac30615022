package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is anything the entity store keeps. Key is the identity the store
// must preserve across reads and writes.
type Record interface {
	User | Product | Customer | Order
	Key() string
}

type Product struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (p Product) Key() string { return p.SKU }

// Customer is keyed by phone number.
type Customer struct {
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Customer) Key() string { return c.Phone }

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusReceived Status = "received"
)

var statusLabels = map[Status]string{
	StatusPending:  "قيد الاستلام",
	StatusReceived: "تم الاستلام",
}

// Statuses lists every order status in display order.
var Statuses = []Status{StatusPending, StatusReceived}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the text shown to users and written to exports.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus accepts either the status code or its display label.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for st, label := range statusLabels {
		if strings.EqualFold(s, string(st)) || s == label {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// OrderItem is a line of an invoice. Name and prices are copied from the
// catalog when the product is selected so later catalog edits do not change
// historical invoices.
type OrderItem struct {
	SKU          string          `json:"sku"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.SellingPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i OrderItem) LineCost() decimal.Decimal {
	return i.CostPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerName    string          `json:"customer_name"`
	CustomerAddress string          `json:"customer_address"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          Status          `json:"status"`
	CreatedBy       string          `json:"created_by"`
	CreatedByName   string          `json:"created_by_name"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (o Order) Key() string { return o.InvoiceNumber }

// ItemsTotal is Σ quantity × selling price.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Recalculate derives TotalAmount from the items.
func (o *Order) Recalculate() {
	o.TotalAmount = ItemsTotal(o.Items)
}

func (o Order) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineCost())
	}
	return total
}

func (o Order) Profit() decimal.Decimal {
	return ItemsTotal(o.Items).Sub(o.TotalCost())
}

// References reports whether any line of the order uses the product.
func (o Order) References(sku string) bool {
	for _, item := range o.Items {
		if item.SKU == sku {
			return true
		}
	}
	return false
}

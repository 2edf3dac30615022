// Package report flattens orders into the rows of the spreadsheet export.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/sales-desk/internal/domain"
)

// Unavailable stands in for a name neither the order nor the catalog knows.
const Unavailable = "غير متوفر"

// EmptyMessage is shown when there is nothing to export.
const EmptyMessage = "لا توجد بيانات لتصديرها."

// ItemRow is one order line.
type ItemRow struct {
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerAddress string          `json:"customer_address"`
	SKU             string          `json:"sku"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
	LineCost        decimal.Decimal `json:"line_cost"`
	Status          domain.Status   `json:"status"`
	CreatedByName   string          `json:"created_by_name"`
}

// OrderRow aggregates one order.
type OrderRow struct {
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerAddress string          `json:"customer_address"`
	ItemCount       int             `json:"item_count"`
	Quantity        int             `json:"quantity"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	TotalSelling    decimal.Decimal `json:"total_selling"`
	Profit          decimal.Decimal `json:"profit"`
	Status          domain.Status   `json:"status"`
	CreatedByName   string          `json:"created_by_name"`
}

type Report struct {
	Orders []OrderRow `json:"orders"`
	Items  []ItemRow  `json:"items"`
}

// Project builds one OrderRow per order and one ItemRow per order line, in
// input order. Missing product and creator names are filled from the catalog
// lookups. ok is false when there are no orders.
func Project(orders []domain.Order, products []domain.Product, users []domain.User) (r Report, ok bool) {
	if len(orders) == 0 {
		return Report{}, false
	}

	productNames := make(map[string]string, len(products))
	for _, p := range products {
		productNames[p.SKU] = p.Name
	}
	userNames := make(map[string]string, len(users))
	for _, u := range users {
		userNames[u.ID] = u.Name
	}

	r.Orders = make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		creator := firstNonEmpty(o.CreatedByName, userNames[o.CreatedBy], Unavailable)

		row := OrderRow{
			InvoiceNumber:   o.InvoiceNumber,
			InvoiceDate:     o.InvoiceDate,
			CustomerName:    o.CustomerName,
			CustomerPhone:   o.CustomerPhone,
			CustomerAddress: o.CustomerAddress,
			ItemCount:       len(o.Items),
			TotalCost:       o.TotalCost(),
			TotalSelling:    domain.ItemsTotal(o.Items),
			Status:          o.Status,
			CreatedByName:   creator,
		}
		row.Profit = row.TotalSelling.Sub(row.TotalCost)

		for _, item := range o.Items {
			row.Quantity += item.Quantity
			r.Items = append(r.Items, ItemRow{
				InvoiceNumber:   o.InvoiceNumber,
				InvoiceDate:     o.InvoiceDate,
				CustomerName:    o.CustomerName,
				CustomerPhone:   o.CustomerPhone,
				CustomerAddress: o.CustomerAddress,
				SKU:             item.SKU,
				ProductName:     firstNonEmpty(item.ProductName, productNames[item.SKU], Unavailable),
				Quantity:        item.Quantity,
				CostPrice:       item.CostPrice,
				SellingPrice:    item.SellingPrice,
				LineTotal:       item.LineTotal(),
				LineCost:        item.LineCost(),
				Status:          o.Status,
				CreatedByName:   creator,
			})
		}
		r.Orders = append(r.Orders, row)
	}
	return r, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

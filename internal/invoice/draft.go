package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/sales-desk/internal/domain"
)

// Draft edits the line items of an order before it is saved. Selecting a
// product copies its name and prices into the line; changing the quantity
// leaves them alone.
type Draft struct {
	items []domain.OrderItem
}

// NewDraft starts from a copy of items.
func NewDraft(items []domain.OrderItem) *Draft {
	return &Draft{items: append([]domain.OrderItem(nil), items...)}
}

// AddLine appends an empty line with quantity 1 and returns its index.
func (d *Draft) AddLine() int {
	d.items = append(d.items, domain.OrderItem{Quantity: 1})
	return len(d.items) - 1
}

// SelectProduct points line i at p and snapshots p's current prices.
func (d *Draft) SelectProduct(i int, p domain.Product) error {
	if err := d.check(i); err != nil {
		return err
	}
	item := &d.items[i]
	item.SKU = p.SKU
	item.ProductName = p.Name
	item.CostPrice = p.CostPrice
	item.SellingPrice = p.SellingPrice
	return nil
}

// SetQuantity sets the quantity of line i. Values below 1 become 1.
func (d *Draft) SetQuantity(i, quantity int) error {
	if err := d.check(i); err != nil {
		return err
	}
	if quantity < 1 {
		quantity = 1
	}
	d.items[i].Quantity = quantity
	return nil
}

func (d *Draft) RemoveLine(i int) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.items = append(d.items[:i], d.items[i+1:]...)
	return nil
}

// Items returns a copy of the lines.
func (d *Draft) Items() []domain.OrderItem {
	return append([]domain.OrderItem(nil), d.items...)
}

func (d *Draft) Total() decimal.Decimal {
	return domain.ItemsTotal(d.items)
}

// Validate requires at least one line, a product on every line and positive
// quantities.
func (d *Draft) Validate() error {
	if len(d.items) == 0 {
		return fmt.Errorf("%w: an invoice needs at least one item", domain.ErrValidation)
	}
	for i, item := range d.items {
		if item.SKU == "" {
			return fmt.Errorf("%w: item %d has no product", domain.ErrValidation, i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d must have a positive quantity", domain.ErrValidation, i+1)
		}
	}
	return nil
}

func (d *Draft) check(i int) error {
	if i < 0 || i >= len(d.items) {
		return fmt.Errorf("%w: no item at position %d", domain.ErrValidation, i+1)
	}
	return nil
}

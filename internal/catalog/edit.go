package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/sales-desk/internal/domain"
)

// Edit is a change to one catalog record. The set of variants is closed:
// UserEdit, ProductEdit and CustomerEdit.
type Edit interface {
	// Target names the record the edit applies to, for logs and messages.
	Target() string
	catalogEdit()
}

// UserEdit replaces a user's name and role. An empty Password keeps the
// current one.
type UserEdit struct {
	ID       string      `json:"-"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
	Password string      `json:"password,omitempty"`
}

type ProductEdit struct {
	SKU          string          `json:"-"`
	Name         string          `json:"name"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

type CustomerEdit struct {
	Phone   string `json:"-"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (e UserEdit) Target() string     { return "user " + e.ID }
func (e ProductEdit) Target() string  { return "product " + e.SKU }
func (e CustomerEdit) Target() string { return "customer " + e.Phone }

func (UserEdit) catalogEdit()     {}
func (ProductEdit) catalogEdit()  {}
func (CustomerEdit) catalogEdit() {}

// Apply dispatches an edit to the matching update operation.
func (s *Service) Apply(ctx context.Context, e Edit) error {
	var err error
	switch e := e.(type) {
	case UserEdit:
		_, err = s.UpdateUser(ctx, e)
	case ProductEdit:
		_, err = s.UpdateProduct(ctx, e)
	case CustomerEdit:
		_, err = s.UpdateCustomer(ctx, e)
	default:
		err = fmt.Errorf("%w: unsupported edit %T", domain.ErrValidation, e)
	}
	return err
}

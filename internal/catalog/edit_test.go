package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sales-desk/internal/domain"
)

func TestService_Apply(t *testing.T) {
	svc, s := newTestService()
	ctx := context.Background()
	addUser(t, svc, "A1", domain.RoleAdmin)
	_, err := svc.AddProduct(ctx, product("P1", 5, 10))
	require.NoError(t, err)
	_, err = svc.AddCustomer(ctx, customer("0100"))
	require.NoError(t, err)

	edits := []Edit{
		UserEdit{ID: "A1", Name: "Boss", Role: domain.RoleAdmin},
		ProductEdit{SKU: "P1", Name: "Widget", CostPrice: decimal.NewFromInt(6), SellingPrice: decimal.NewFromInt(12)},
		CustomerEdit{Phone: "0100", Name: "Ali", Address: "Giza"},
	}
	for _, e := range edits {
		require.NoError(t, svc.Apply(ctx, e), e.Target())
	}

	u, err := s.Users().Get(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Boss", u.Name)

	p, err := s.Products().Get(ctx, "P1")
	require.NoError(t, err)
	assert.True(t, p.SellingPrice.Equal(decimal.NewFromInt(12)))

	c, err := s.Customers().Get(ctx, "0100")
	require.NoError(t, err)
	assert.Equal(t, "Giza", c.Address)
}

func TestService_Apply_PropagatesGuards(t *testing.T) {
	svc, _ := newTestService()
	addUser(t, svc, "A1", domain.RoleAdmin)

	err := svc.Apply(context.Background(), UserEdit{ID: "A1", Name: "x", Role: domain.RoleRepresentative})
	assert.ErrorIs(t, err, domain.ErrLastAdmin)
}

func TestService_Apply_NilEdit(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Apply(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEdit_Target(t *testing.T) {
	assert.Equal(t, "user A1", UserEdit{ID: "A1"}.Target())
	assert.Equal(t, "product P1", ProductEdit{SKU: "P1"}.Target())
	assert.Equal(t, "customer 0100", CustomerEdit{Phone: "0100"}.Target())
}

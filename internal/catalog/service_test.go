package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sales-desk/internal/domain"
	"github.com/example/sales-desk/internal/infrastructure/store"
	"github.com/example/sales-desk/internal/infrastructure/store/mocks"
)

func newTestService() (*Service, store.Store) {
	s := store.NewMemoryStore(nil, nil)
	return NewService(s, nil), s
}

func product(sku string, cost, price int64) domain.Product {
	return domain.Product{
		SKU:          sku,
		Name:         "Product " + sku,
		CostPrice:    decimal.NewFromInt(cost),
		SellingPrice: decimal.NewFromInt(price),
	}
}

func customer(phone string) domain.Customer {
	return domain.Customer{Phone: phone, Name: "Customer " + phone, Address: "Street 1"}
}

func orderFor(invoice, phone string, skus ...string) domain.Order {
	o := domain.Order{
		InvoiceNumber: invoice,
		CustomerPhone: phone,
		Status:        domain.StatusPending,
		CreatedBy:     "user1",
	}
	for _, sku := range skus {
		o.Items = append(o.Items, domain.OrderItem{
			SKU:          sku,
			Quantity:     1,
			SellingPrice: decimal.NewFromInt(10),
		})
	}
	o.Recalculate()
	return o
}

// ============================================
// Products
// ============================================

func TestService_AddProduct(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p, err := svc.AddProduct(ctx, product(" SKU-001 ", 5, 10))
	require.NoError(t, err)
	assert.Equal(t, "SKU-001", p.SKU)
	assert.False(t, p.CreatedAt.IsZero())

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestService_AddProduct_DuplicateSKU(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, product("SKU-001", 5, 10))
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, product("SKU-002", 5, 10))
	require.NoError(t, err)

	_, err = svc.AddProduct(ctx, product("SKU-001", 1, 2))
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.True(t, products[0].SellingPrice.Equal(decimal.NewFromInt(10)))
}

func TestService_AddProduct_Validation(t *testing.T) {
	tests := []struct {
		name    string
		product domain.Product
	}{
		{"missing sku", product("", 5, 10)},
		{"missing name", domain.Product{SKU: "P1"}},
		{"negative cost", product("P1", -1, 10)},
		{"negative price", product("P1", 1, -10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s := newTestService()

			_, err := svc.AddProduct(context.Background(), tt.product)
			assert.ErrorIs(t, err, domain.ErrValidation)

			products, err := s.Products().List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, products)
		})
	}
}

func TestService_AddProduct_FreeProduct(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.AddProduct(context.Background(), product("GIFT", 0, 0))
	assert.NoError(t, err)
}

func TestService_UpdateProduct_KeepsInvoiceSnapshots(t *testing.T) {
	svc, s := newTestService()
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, product("P1", 5, 10))
	require.NoError(t, err)
	_, err = s.Orders().Create(ctx, orderFor("1001", "0100", "P1"))
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, ProductEdit{
		SKU:          "P1",
		Name:         "Renamed",
		CostPrice:    decimal.NewFromInt(7),
		SellingPrice: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	o, err := s.Orders().Get(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, o.Items[0].SellingPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(10)))
}

func TestService_UpdateProduct_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.UpdateProduct(context.Background(), ProductEdit{SKU: "missing", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_DeleteProduct(t *testing.T) {
	t.Run("referenced product is kept", func(t *testing.T) {
		svc, s := newTestService()
		ctx := context.Background()
		_, err := svc.AddProduct(ctx, product("P1", 5, 10))
		require.NoError(t, err)
		_, err = s.Orders().Create(ctx, orderFor("1001", "0100", "P2", "P1"))
		require.NoError(t, err)

		err = svc.DeleteProduct(ctx, "P1")
		assert.ErrorIs(t, err, domain.ErrReferentialConflict)
		assert.Contains(t, err.Error(), "1001")

		_, err = s.Products().Get(ctx, "P1")
		assert.NoError(t, err)
		o, err := s.Orders().Get(ctx, "1001")
		require.NoError(t, err)
		assert.Len(t, o.Items, 2)
	})

	t.Run("unreferenced product is deleted", func(t *testing.T) {
		svc, s := newTestService()
		ctx := context.Background()
		_, err := svc.AddProduct(ctx, product("P1", 5, 10))
		require.NoError(t, err)
		_, err = s.Orders().Create(ctx, orderFor("1001", "0100", "P2"))
		require.NoError(t, err)

		require.NoError(t, svc.DeleteProduct(ctx, "P1"))

		_, err = s.Products().Get(ctx, "P1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, _ := newTestService()

		err := svc.DeleteProduct(context.Background(), "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestService_DeleteProduct_StoreFailure(t *testing.T) {
	ms := mocks.NewMockStore()
	svc := NewService(ms, nil)
	ctx := context.Background()
	ms.ProductsMock.SetData(product("P1", 5, 10))
	ms.ProductsMock.DeleteErr = fmt.Errorf("%w: connection reset", domain.ErrStore)

	err := svc.DeleteProduct(ctx, "P1")
	assert.ErrorIs(t, err, domain.ErrStore)

	_, err = ms.Products().Get(ctx, "P1")
	assert.NoError(t, err)
}

func TestService_DeleteProduct_OrdersUnavailable(t *testing.T) {
	ms := mocks.NewMockStore()
	svc := NewService(ms, nil)
	ms.ProductsMock.SetData(product("P1", 5, 10))
	ms.OrdersMock.ListErr = fmt.Errorf("%w: timeout", domain.ErrStore)

	err := svc.DeleteProduct(context.Background(), "P1")
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Empty(t, ms.ProductsMock.DeleteCalls)
}

// ============================================
// Customers
// ============================================

func TestService_AddCustomer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.AddCustomer(ctx, customer("0100"))
	require.NoError(t, err)
	assert.Equal(t, "0100", c.Phone)

	_, err = svc.AddCustomer(ctx, customer("0100"))
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	customers, err := svc.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 1)
}

func TestService_AddCustomer_MissingFields(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.AddCustomer(context.Background(), domain.Customer{Phone: "0100", Name: "  "})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "name, address")
}

func TestService_UpdateCustomer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.AddCustomer(ctx, customer("0100"))
	require.NoError(t, err)

	c, err := svc.UpdateCustomer(ctx, CustomerEdit{Phone: "0100", Name: "Ali", Address: "Giza"})
	require.NoError(t, err)
	assert.Equal(t, "Ali", c.Name)
	assert.Equal(t, "Giza", c.Address)
}

func TestService_DeleteCustomer(t *testing.T) {
	t.Run("referenced customer is kept", func(t *testing.T) {
		svc, s := newTestService()
		ctx := context.Background()
		_, err := svc.AddCustomer(ctx, customer("0100"))
		require.NoError(t, err)
		_, err = s.Orders().Create(ctx, orderFor("1001", "0100", "P1"))
		require.NoError(t, err)

		err = svc.DeleteCustomer(ctx, "0100")
		assert.ErrorIs(t, err, domain.ErrReferentialConflict)

		_, err = s.Customers().Get(ctx, "0100")
		assert.NoError(t, err)
	})

	t.Run("unreferenced customer is deleted", func(t *testing.T) {
		svc, s := newTestService()
		ctx := context.Background()
		_, err := svc.AddCustomer(ctx, customer("0100"))
		require.NoError(t, err)
		_, err = s.Orders().Create(ctx, orderFor("1001", "0200", "P1"))
		require.NoError(t, err)

		require.NoError(t, svc.DeleteCustomer(ctx, "0100"))
	})
}

package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sales-desk/internal/domain"
)

func catalogProduct(sku string, cost, price int64) domain.Product {
	return domain.Product{
		SKU:          sku,
		Name:         "Product " + sku,
		CostPrice:    decimal.NewFromInt(cost),
		SellingPrice: decimal.NewFromInt(price),
	}
}

func TestDraft_LineEditing(t *testing.T) {
	d := NewDraft(nil)

	a := d.AddLine()
	require.NoError(t, d.SelectProduct(a, catalogProduct("A", 6, 10)))
	require.NoError(t, d.SetQuantity(a, 2))

	b := d.AddLine()
	require.NoError(t, d.SelectProduct(b, catalogProduct("B", 3, 5)))

	assert.True(t, d.Total().Equal(decimal.NewFromInt(25)))
	require.NoError(t, d.Validate())

	require.NoError(t, d.SetQuantity(a, 3))
	assert.True(t, d.Total().Equal(decimal.NewFromInt(35)))
	items := d.Items()
	assert.True(t, items[0].SellingPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, items[0].CostPrice.Equal(decimal.NewFromInt(6)))

	require.NoError(t, d.RemoveLine(b))
	assert.True(t, d.Total().Equal(decimal.NewFromInt(30)))
}

func TestDraft_SetQuantityClamps(t *testing.T) {
	for _, q := range []int{0, -4} {
		d := NewDraft(nil)
		i := d.AddLine()
		require.NoError(t, d.SelectProduct(i, catalogProduct("A", 1, 2)))

		require.NoError(t, d.SetQuantity(i, q))
		assert.Equal(t, 1, d.Items()[0].Quantity)
	}
}

func TestDraft_SelectProductReplacesSnapshot(t *testing.T) {
	d := NewDraft(nil)
	i := d.AddLine()
	require.NoError(t, d.SelectProduct(i, catalogProduct("A", 6, 10)))
	require.NoError(t, d.SetQuantity(i, 4))

	require.NoError(t, d.SelectProduct(i, catalogProduct("B", 1, 3)))

	item := d.Items()[0]
	assert.Equal(t, "B", item.SKU)
	assert.Equal(t, "Product B", item.ProductName)
	assert.Equal(t, 4, item.Quantity)
	assert.True(t, item.SellingPrice.Equal(decimal.NewFromInt(3)))
}

func TestDraft_Validate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, NewDraft(nil).Validate(), domain.ErrValidation)
	})

	t.Run("line without product", func(t *testing.T) {
		d := NewDraft(nil)
		d.AddLine()
		assert.ErrorIs(t, d.Validate(), domain.ErrValidation)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		d := NewDraft([]domain.OrderItem{{SKU: "A", Quantity: 0}})
		assert.ErrorIs(t, d.Validate(), domain.ErrValidation)
	})
}

func TestDraft_OutOfRange(t *testing.T) {
	d := NewDraft(nil)

	assert.ErrorIs(t, d.SetQuantity(0, 1), domain.ErrValidation)
	assert.ErrorIs(t, d.RemoveLine(-1), domain.ErrValidation)
	assert.ErrorIs(t, d.SelectProduct(3, catalogProduct("A", 1, 1)), domain.ErrValidation)
}

func TestDraft_DoesNotAliasInput(t *testing.T) {
	items := []domain.OrderItem{{SKU: "A", Quantity: 1}}
	d := NewDraft(items)

	require.NoError(t, d.SetQuantity(0, 9))
	assert.Equal(t, 1, items[0].Quantity)
}

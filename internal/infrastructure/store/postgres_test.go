package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/domain"
)

// newTestPostgresStore connects to TEST_DATABASE_URL and empties the
// documents table. Tests are skipped when the variable is unset.
func newTestPostgresStore(t *testing.T) (*PostgresStore, *recordingPublisher) {
	t.Helper()
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := ConnectPostgres(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE documents`)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	s := NewPostgresStore(db, pub, zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s, pub
}

func TestPostgresStore_CreateAndGet(t *testing.T) {
	s, pub := newTestPostgresStore(t)
	ctx := context.Background()

	_, err := s.Products().Create(ctx, testProduct("P1"))
	require.NoError(t, err)

	got, err := s.Products().Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Widget P1", got.Name)
	assert.Equal(t, []string{"products/P1"}, pub.keys)

	_, err = s.Products().Create(ctx, testProduct("P1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	_, err = s.Products().Get(ctx, "P2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresStore_ListInCreationOrder(t *testing.T) {
	s, _ := newTestPostgresStore(t)
	ctx := context.Background()

	for _, sku := range []string{"C", "A", "B"} {
		_, err := s.Products().Create(ctx, testProduct(sku))
		require.NoError(t, err)
	}

	items, err := s.Products().List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "C", items[0].SKU)
	assert.Equal(t, "A", items[1].SKU)
	assert.Equal(t, "B", items[2].SKU)

	customers, err := s.Customers().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestPostgresStore_Update(t *testing.T) {
	s, _ := newTestPostgresStore(t)
	ctx := context.Background()
	_, err := s.Products().Create(ctx, testProduct("P1"))
	require.NoError(t, err)

	err = s.Products().Update(ctx, "P1", func(p *domain.Product) error {
		p.Name = "Renamed"
		return nil
	})
	require.NoError(t, err)
	got, err := s.Products().Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	err = s.Products().Update(ctx, "P1", func(p *domain.Product) error {
		p.SKU = "P9"
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = s.Products().Update(ctx, "missing", func(p *domain.Product) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresStore_Delete(t *testing.T) {
	s, _ := newTestPostgresStore(t)
	ctx := context.Background()
	_, err := s.Products().Create(ctx, testProduct("P1"))
	require.NoError(t, err)

	require.NoError(t, s.Products().Delete(ctx, "P1"))
	assert.ErrorIs(t, s.Products().Delete(ctx, "P1"), domain.ErrNotFound)
}

package mocks

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/domain"
	"github.com/example/sales-desk/internal/infrastructure/store"
)

// MockStore is an in-memory store.Store whose collections can be told to fail.
type MockStore struct {
	*store.MemoryStore

	UsersMock     *MockCollection[domain.User]
	ProductsMock  *MockCollection[domain.Product]
	CustomersMock *MockCollection[domain.Customer]
	OrdersMock    *MockCollection[domain.Order]
}

// NewMockStore creates a new MockStore
func NewMockStore() *MockStore {
	mem := store.NewMemoryStore(nil, zap.NewNop())
	return &MockStore{
		MemoryStore:   mem,
		UsersMock:     NewMockCollection(mem.Users()),
		ProductsMock:  NewMockCollection(mem.Products()),
		CustomersMock: NewMockCollection(mem.Customers()),
		OrdersMock:    NewMockCollection(mem.Orders()),
	}
}

func (m *MockStore) Users() store.Collection[domain.User]         { return m.UsersMock }
func (m *MockStore) Products() store.Collection[domain.Product]   { return m.ProductsMock }
func (m *MockStore) Customers() store.Collection[domain.Customer] { return m.CustomersMock }
func (m *MockStore) Orders() store.Collection[domain.Order]       { return m.OrdersMock }

// MockCollection wraps a real collection, recording calls and returning the
// configured errors instead of touching the data.
type MockCollection[T domain.Record] struct {
	mu    sync.Mutex
	inner store.Collection[T]

	ListErr   error
	GetErr    error
	CreateErr error
	UpdateErr error
	DeleteErr error

	// CreateCallback, when set, runs before the write; a non-nil result is
	// returned without storing the record.
	CreateCallback func(rec T) error

	CreateCalls []T
	UpdateCalls []string
	DeleteCalls []string
}

// NewMockCollection creates a new MockCollection
func NewMockCollection[T domain.Record](inner store.Collection[T]) *MockCollection[T] {
	return &MockCollection[T]{inner: inner}
}

func (m *MockCollection[T]) List(ctx context.Context) ([]T, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.inner.List(ctx)
}

func (m *MockCollection[T]) Get(ctx context.Context, id string) (T, error) {
	if m.GetErr != nil {
		var zero T
		return zero, m.GetErr
	}
	return m.inner.Get(ctx, id)
}

func (m *MockCollection[T]) Create(ctx context.Context, rec T) (string, error) {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, rec)
	m.mu.Unlock()

	if m.CreateCallback != nil {
		if err := m.CreateCallback(rec); err != nil {
			return "", err
		}
	}
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	return m.inner.Create(ctx, rec)
}

func (m *MockCollection[T]) Update(ctx context.Context, id string, fn func(*T) error) error {
	m.mu.Lock()
	m.UpdateCalls = append(m.UpdateCalls, id)
	m.mu.Unlock()

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	return m.inner.Update(ctx, id, fn)
}

func (m *MockCollection[T]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	m.mu.Unlock()

	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	return m.inner.Delete(ctx, id)
}

// SetData stores a record directly for testing, bypassing configured errors.
func (m *MockCollection[T]) SetData(rec T) {
	_, _ = m.inner.Create(context.Background(), rec)
}

// MockPublisher records published changes.
type MockPublisher struct {
	mu         sync.Mutex
	Published  []PublishCall
	PublishErr error
}

// PublishCall records parameters passed to Publish
type PublishCall struct {
	Key   string
	Event any
}

func (p *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, PublishCall{Key: key, Event: event})
	return p.PublishErr
}

// Calls returns a copy of the recorded calls.
func (p *MockPublisher) Calls() []PublishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishCall(nil), p.Published...)
}

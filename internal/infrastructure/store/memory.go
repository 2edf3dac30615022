package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/domain"
)

// MemoryStore keeps every collection in process memory. It backs tests and
// single-node setups; records are deep-copied on the way in and out so callers
// never share state with the store.
type MemoryStore struct {
	*broadcaster

	users     *memCollection[domain.User]
	products  *memCollection[domain.Product]
	customers *memCollection[domain.Customer]
	orders    *memCollection[domain.Order]
}

func NewMemoryStore(publisher Publisher, log *zap.Logger) *MemoryStore {
	b := newBroadcaster(publisher, log)
	return &MemoryStore{
		broadcaster: b,
		users:       newMemCollection[domain.User](b),
		products:    newMemCollection[domain.Product](b),
		customers:   newMemCollection[domain.Customer](b),
		orders:      newMemCollection[domain.Order](b),
	}
}

func (s *MemoryStore) Users() Collection[domain.User]         { return s.users }
func (s *MemoryStore) Products() Collection[domain.Product]   { return s.products }
func (s *MemoryStore) Customers() Collection[domain.Customer] { return s.customers }
func (s *MemoryStore) Orders() Collection[domain.Order]       { return s.orders }

func (s *MemoryStore) Close() error { return nil }

type memCollection[T domain.Record] struct {
	name string
	bus  *broadcaster

	mu   sync.RWMutex
	data map[string]T
	keys []string // insertion order
}

func newMemCollection[T domain.Record](bus *broadcaster) *memCollection[T] {
	return &memCollection[T]{
		name: collectionOf[T](),
		bus:  bus,
		data: make(map[string]T),
	}
}

func (c *memCollection[T]) List(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]T, 0, len(c.keys))
	for _, k := range c.keys {
		v, err := clone(c.data[k])
		if err != nil {
			return nil, storeErr("list", c.name, k, err)
		}
		items = append(items, v)
	}
	return items, nil
}

func (c *memCollection[T]) Get(ctx context.Context, id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	v, ok := c.data[id]
	if !ok {
		return zero, notFound(c.name, id)
	}
	out, err := clone(v)
	if err != nil {
		return zero, storeErr("get", c.name, id, err)
	}
	return out, nil
}

func (c *memCollection[T]) Create(ctx context.Context, rec T) (string, error) {
	id := rec.Key()
	if err := checkKey(c.name, id); err != nil {
		return "", err
	}
	v, err := clone(rec)
	if err != nil {
		return "", storeErr("create", c.name, id, err)
	}

	c.mu.Lock()
	if _, exists := c.data[id]; exists {
		c.mu.Unlock()
		return "", duplicate(c.name, id)
	}
	c.data[id] = v
	c.keys = append(c.keys, id)
	c.mu.Unlock()

	c.bus.emit(ctx, c.name, id, OpCreated)
	return id, nil
}

func (c *memCollection[T]) Update(ctx context.Context, id string, fn func(*T) error) error {
	c.mu.Lock()
	current, ok := c.data[id]
	if !ok {
		c.mu.Unlock()
		return notFound(c.name, id)
	}
	working, err := clone(current)
	if err != nil {
		c.mu.Unlock()
		return storeErr("update", c.name, id, err)
	}
	if err := fn(&working); err != nil {
		c.mu.Unlock()
		return err
	}
	if working.Key() != id {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s key cannot change", domain.ErrValidation, singular(c.name))
	}
	c.data[id] = working
	c.mu.Unlock()

	c.bus.emit(ctx, c.name, id, OpUpdated)
	return nil
}

func (c *memCollection[T]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if _, ok := c.data[id]; !ok {
		c.mu.Unlock()
		return notFound(c.name, id)
	}
	delete(c.data, id)
	for i, k := range c.keys {
		if k == id {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.bus.emit(ctx, c.name, id, OpDeleted)
	return nil
}

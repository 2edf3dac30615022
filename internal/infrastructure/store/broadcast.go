package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/domain"
)

// broadcaster fans confirmed writes out to local subscribers and, when set,
// to a Publisher.
type broadcaster struct {
	mu        sync.RWMutex
	subs      map[int]func(Change)
	next      int
	publisher Publisher
	log       *zap.Logger
}

func newBroadcaster(publisher Publisher, log *zap.Logger) *broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &broadcaster{
		subs:      make(map[int]func(Change)),
		publisher: publisher,
		log:       log,
	}
}

func (b *broadcaster) Subscribe(fn func(Change)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// emit must be called after the write is durable and outside any store lock.
func (b *broadcaster) emit(ctx context.Context, collection, id string, op Op) {
	change := Change{Collection: collection, ID: id, Op: op, At: time.Now()}

	if b.publisher != nil {
		if err := b.publisher.Publish(ctx, collection+"/"+id, change); err != nil {
			// the write itself succeeded; remote subscribers catch up on the next change
			b.log.Warn("failed to publish change",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err))
		}
	}

	b.mu.RLock()
	subs := make([]func(Change), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
}

// clone deep-copies a record through its JSON form, the same shape every
// backend persists.
func clone[T domain.Record](v T) (T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](data)
}

func decode[T domain.Record](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func notFound(collection, id string) error {
	return fmt.Errorf("%w: %s %q", domain.ErrNotFound, singular(collection), id)
}

func duplicate(collection, id string) error {
	return fmt.Errorf("%w: %s %q already exists", domain.ErrDuplicateKey, singular(collection), id)
}

func storeErr(op, collection, id string, err error) error {
	return fmt.Errorf("%w: %s %s/%s: %w", domain.ErrStore, op, collection, id, err)
}

func checkKey(collection, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s key is required", domain.ErrValidation, singular(collection))
	}
	return nil
}

func singular(collection string) string {
	switch collection {
	case CollectionUsers:
		return "user"
	case CollectionProducts:
		return "product"
	case CollectionCustomers:
		return "customer"
	case CollectionOrders:
		return "order"
	}
	return collection
}

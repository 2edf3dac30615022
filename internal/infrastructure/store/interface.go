package store

import (
	"context"
	"time"

	"github.com/example/sales-desk/internal/domain"
)

// Collection names, also used as the partition value in document backends.
const (
	CollectionUsers     = "users"
	CollectionProducts  = "products"
	CollectionCustomers = "customers"
	CollectionOrders    = "orders"
)

// Collection is a keyed set of records of one entity type.
//
// Get, Update and Delete fail with domain.ErrNotFound for unknown keys, Create
// fails with domain.ErrDuplicateKey when the key is taken. Backend I/O errors
// are wrapped with domain.ErrStore.
type Collection[T domain.Record] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, rec T) (string, error)
	// Update applies fn to the current record and stores the result. Nothing
	// is written when fn returns an error.
	Update(ctx context.Context, id string, fn func(*T) error) error
	Delete(ctx context.Context, id string) error
}

// Store gives access to the four collections and to their change feed.
type Store interface {
	Users() Collection[domain.User]
	Products() Collection[domain.Product]
	Customers() Collection[domain.Customer]
	Orders() Collection[domain.Order]

	// Subscribe registers fn for every confirmed write. The returned func
	// removes the subscription.
	Subscribe(fn func(Change)) func()
	Close() error
}

type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Change describes a write that the backend has confirmed.
type Change struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Op         Op        `json:"op"`
	At         time.Time `json:"at"`
}

// Publisher ships changes to other processes.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

func collectionOf[T domain.Record]() string {
	var zero T
	switch any(zero).(type) {
	case domain.User:
		return CollectionUsers
	case domain.Product:
		return CollectionProducts
	case domain.Customer:
		return CollectionCustomers
	default:
		return CollectionOrders
	}
}

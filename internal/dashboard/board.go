// Package dashboard keeps an in-memory view of the store that is rebuilt on
// every confirmed change, locally or via kafka.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/access"
	"github.com/example/sales-desk/internal/domain"
	"github.com/example/sales-desk/internal/infrastructure/store"
	"github.com/example/sales-desk/internal/report"
)

// Snapshot is the state the board serves reads from. Users carry no
// password hashes.
type Snapshot struct {
	Users       []domain.User     `json:"users"`
	Products    []domain.Product  `json:"products"`
	Customers   []domain.Customer `json:"customers"`
	Orders      []domain.Order    `json:"orders"`
	Version     uint64            `json:"version"`
	RefreshedAt time.Time         `json:"refreshed_at"`
}

// Stats summarizes the orders visible to one user.
type Stats struct {
	Orders     int             `json:"orders"`
	Pending    int             `json:"pending"`
	Received   int             `json:"received"`
	TotalSales decimal.Decimal `json:"total_sales"`
	Profit     decimal.Decimal `json:"profit"`
}

// Board only ever holds data the store has confirmed: a failed reload keeps
// the previous snapshot.
type Board struct {
	store store.Store
	log   *zap.Logger

	// reloads serializes list-and-apply per collection so an older listing
	// never replaces a newer one.
	reloads map[string]*sync.Mutex

	mu   sync.RWMutex
	snap Snapshot
}

// collections is the lock order for a full refresh.
var collections = []string{
	store.CollectionUsers,
	store.CollectionProducts,
	store.CollectionCustomers,
	store.CollectionOrders,
}

func NewBoard(s store.Store, log *zap.Logger) *Board {
	if log == nil {
		log = zap.NewNop()
	}
	reloads := make(map[string]*sync.Mutex, len(collections))
	for _, name := range collections {
		reloads[name] = &sync.Mutex{}
	}
	return &Board{store: s, log: log.Named("dashboard"), reloads: reloads}
}

// Watch refreshes the board on every change of the local store until the
// returned func is called.
func (b *Board) Watch() func() {
	return b.store.Subscribe(func(c store.Change) {
		b.Apply(context.Background(), c)
	})
}

// Refresh reloads all four collections.
func (b *Board) Refresh(ctx context.Context) error {
	for _, name := range collections {
		b.reloads[name].Lock()
		defer b.reloads[name].Unlock()
	}

	applies := make([]func(*Snapshot), 0, len(collections))
	for _, name := range collections {
		apply, err := b.load(ctx, name)
		if err != nil {
			return err
		}
		applies = append(applies, apply)
	}

	b.mu.Lock()
	for _, apply := range applies {
		apply(&b.snap)
	}
	b.snap.Version++
	b.snap.RefreshedAt = time.Now().UTC()
	b.mu.Unlock()
	return nil
}

// RefreshCollection reloads one collection by name.
func (b *Board) RefreshCollection(ctx context.Context, collection string) error {
	reload, ok := b.reloads[collection]
	if !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	reload.Lock()
	defer reload.Unlock()

	apply, err := b.load(ctx, collection)
	if err != nil {
		return err
	}

	b.mu.Lock()
	apply(&b.snap)
	b.snap.Version++
	b.snap.RefreshedAt = time.Now().UTC()
	b.mu.Unlock()
	return nil
}

// load lists one collection and returns the func that installs it.
func (b *Board) load(ctx context.Context, collection string) (func(*Snapshot), error) {
	switch collection {
	case store.CollectionUsers:
		users, err := b.store.Users().List(ctx)
		if err != nil {
			return nil, err
		}
		for i := range users {
			users[i] = users[i].Public()
		}
		return func(s *Snapshot) { s.Users = users }, nil
	case store.CollectionProducts:
		products, err := b.store.Products().List(ctx)
		if err != nil {
			return nil, err
		}
		return func(s *Snapshot) { s.Products = products }, nil
	case store.CollectionCustomers:
		customers, err := b.store.Customers().List(ctx)
		if err != nil {
			return nil, err
		}
		return func(s *Snapshot) { s.Customers = customers }, nil
	case store.CollectionOrders:
		orders, err := b.store.Orders().List(ctx)
		if err != nil {
			return nil, err
		}
		return func(s *Snapshot) { s.Orders = orders }, nil
	}
	return nil, fmt.Errorf("unknown collection %q", collection)
}

// Apply handles a change from the local store. Reload errors are logged; the
// next change retries.
func (b *Board) Apply(ctx context.Context, c store.Change) {
	if err := b.RefreshCollection(ctx, c.Collection); err != nil {
		b.log.Error("refresh failed",
			zap.String("collection", c.Collection),
			zap.String("id", c.ID),
			zap.Error(err))
	}
}

// HandleEvent consumes a change published by another process. It satisfies
// kafka.MessageHandler.
func (b *Board) HandleEvent(ctx context.Context, key, value []byte) error {
	var c store.Change
	if err := json.Unmarshal(value, &c); err != nil {
		return fmt.Errorf("decode change %s: %w", key, err)
	}
	b.log.Debug("received change",
		zap.String("collection", c.Collection),
		zap.String("id", c.ID),
		zap.String("op", string(c.Op)))
	return b.RefreshCollection(ctx, c.Collection)
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		Users:       append([]domain.User(nil), b.snap.Users...),
		Products:    append([]domain.Product(nil), b.snap.Products...),
		Customers:   append([]domain.Customer(nil), b.snap.Customers...),
		Orders:      append([]domain.Order(nil), b.snap.Orders...),
		Version:     b.snap.Version,
		RefreshedAt: b.snap.RefreshedAt,
	}
}

// Orders runs the access filter over the current snapshot.
func (b *Board) Orders(actor domain.User, c access.Criteria) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return access.Filter(actor, b.snap.Orders, c)
}

// Export projects the orders visible to actor into report rows.
func (b *Board) Export(actor domain.User, c access.Criteria) (report.Report, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	visible := access.Filter(actor, b.snap.Orders, c)
	return report.Project(visible, b.snap.Products, b.snap.Users)
}

// Stats counts the orders visible to actor.
func (b *Board) Stats(actor domain.User) Stats {
	s := Stats{TotalSales: decimal.Zero, Profit: decimal.Zero}
	for _, o := range b.Orders(actor, access.Criteria{}) {
		s.Orders++
		switch o.Status {
		case domain.StatusPending:
			s.Pending++
		case domain.StatusReceived:
			s.Received++
		}
		s.TotalSales = s.TotalSales.Add(o.TotalAmount)
		s.Profit = s.Profit.Add(o.Profit())
	}
	return s
}

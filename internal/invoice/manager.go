// Package invoice creates and edits orders: numbering, item price snapshots,
// totals, customer resolution and status changes.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/access"
	"github.com/example/sales-desk/internal/domain"
	"github.com/example/sales-desk/internal/infrastructure/store"
)

// maxCreateAttempts bounds renumbering after an invoice number collision.
const maxCreateAttempts = 3

// CustomerRegistry creates and removes catalog customers on behalf of the
// manager. catalog.Service implements it.
type CustomerRegistry interface {
	AddCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	DeleteCustomer(ctx context.Context, phone string) error
}

// Submission is the content of the order form.
type Submission struct {
	Customer    CustomerSelection `json:"customer"`
	Lines       []LineInput       `json:"items"`
	InvoiceDate *time.Time        `json:"invoice_date,omitempty"`
}

// CustomerSelection names an existing customer by phone or carries a new one
// to be created with the order. Exactly one must be set.
type CustomerSelection struct {
	ExistingPhone string           `json:"phone,omitempty"`
	New           *domain.Customer `json:"new,omitempty"`
}

type LineInput struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type Manager struct {
	store     store.Store
	customers CustomerRegistry
	numbering Numbering
	log       *zap.Logger
	now       func() time.Time
}

func NewManager(s store.Store, customers CustomerRegistry, numbering Numbering, log *zap.Logger) *Manager {
	if numbering == nil {
		numbering = Sequential{Seed: DefaultSeed}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:     s,
		customers: customers,
		numbering: numbering,
		log:       log.Named("invoice"),
		now:       time.Now,
	}
}

// ============================================
// Queries
// ============================================

// Get returns an order the actor may see.
func (m *Manager) Get(ctx context.Context, actor domain.User, invoiceNumber string) (domain.Order, error) {
	o, err := m.store.Orders().Get(ctx, invoiceNumber)
	if err != nil {
		return domain.Order{}, err
	}
	if !access.Visible(actor, o) {
		return domain.Order{}, fmt.Errorf("%w: invoice %s belongs to another user", domain.ErrForbidden, invoiceNumber)
	}
	return o, nil
}

// List returns the orders visible to actor that match c.
func (m *Manager) List(ctx context.Context, actor domain.User, c access.Criteria) ([]domain.Order, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	orders, err := m.store.Orders().List(ctx)
	if err != nil {
		return nil, err
	}
	return access.Filter(actor, orders, c), nil
}

// ============================================
// Create
// ============================================

// Create validates the submission, creates an inline customer when asked to
// and stores a new pending order authored by actor.
func (m *Manager) Create(ctx context.Context, actor domain.User, sub Submission) (domain.Order, error) {
	if !actor.Role.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown role %q", domain.ErrForbidden, actor.Role)
	}
	now := m.now().UTC()
	invoiceDate := now
	if sub.InvoiceDate != nil {
		if !actor.IsAdmin() {
			return domain.Order{}, fmt.Errorf("%w: only an admin may set the invoice date", domain.ErrForbidden)
		}
		invoiceDate = sub.InvoiceDate.UTC()
	}

	items, err := m.buildItems(ctx, nil, sub.Lines)
	if err != nil {
		return domain.Order{}, m.rejected("create", "", err)
	}
	cust, isNew, err := m.resolveCustomer(ctx, sub.Customer)
	if err != nil {
		return domain.Order{}, m.rejected("create", "", err)
	}

	if isNew {
		if cust, err = m.customers.AddCustomer(ctx, cust); err != nil {
			return domain.Order{}, m.rejected("create", "", err)
		}
	}

	o := domain.Order{
		InvoiceDate:     invoiceDate,
		CustomerPhone:   cust.Phone,
		CustomerName:    cust.Name,
		CustomerAddress: cust.Address,
		Items:           items,
		Status:          domain.StatusPending,
		CreatedBy:       actor.ID,
		CreatedByName:   actor.Name,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Recalculate()

	if err := m.insert(ctx, &o); err != nil {
		if isNew {
			m.compensateCustomer(ctx, cust.Phone)
		}
		return domain.Order{}, m.rejected("create", o.InvoiceNumber, err)
	}

	m.log.Info("invoice created",
		zap.String("invoice", o.InvoiceNumber),
		zap.String("created_by", actor.ID),
		zap.String("total", o.TotalAmount.String()))
	return o, nil
}

// insert numbers o and writes it, renumbering when another writer took the
// number first.
func (m *Manager) insert(ctx context.Context, o *domain.Order) error {
	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		existing, listErr := m.store.Orders().List(ctx)
		if listErr != nil {
			return listErr
		}
		o.InvoiceNumber = m.numbering.Next(existing)

		_, err = m.store.Orders().Create(ctx, *o)
		if err == nil || !errors.Is(err, domain.ErrDuplicateKey) {
			return err
		}
		m.log.Warn("invoice number taken, renumbering",
			zap.String("invoice", o.InvoiceNumber),
			zap.Int("attempt", attempt))
	}
	return err
}

func (m *Manager) compensateCustomer(ctx context.Context, phone string) {
	if err := m.customers.DeleteCustomer(ctx, phone); err != nil {
		m.log.Error("failed to remove customer created for rejected invoice",
			zap.String("phone", phone), zap.Error(err))
	}
}

// ============================================
// Update
// ============================================

// Update replaces customer and items of an order. The invoice number never
// changes; the invoice date changes only when an admin supplies a new one.
// Lines that keep their product keep their price snapshot.
func (m *Manager) Update(ctx context.Context, actor domain.User, invoiceNumber string, sub Submission) (domain.Order, error) {
	current, err := m.editable(ctx, actor, invoiceNumber)
	if err != nil {
		return domain.Order{}, m.rejected("update", invoiceNumber, err)
	}
	if sub.InvoiceDate != nil && !sub.InvoiceDate.Equal(current.InvoiceDate) && !actor.IsAdmin() {
		return domain.Order{}, m.rejected("update", invoiceNumber,
			fmt.Errorf("%w: only an admin may change the invoice date", domain.ErrForbidden))
	}

	items, err := m.buildItems(ctx, current.Items, sub.Lines)
	if err != nil {
		return domain.Order{}, m.rejected("update", invoiceNumber, err)
	}
	cust, isNew, err := m.resolveCustomer(ctx, sub.Customer)
	if err != nil {
		return domain.Order{}, m.rejected("update", invoiceNumber, err)
	}
	if isNew {
		if cust, err = m.customers.AddCustomer(ctx, cust); err != nil {
			return domain.Order{}, m.rejected("update", invoiceNumber, err)
		}
	}

	var updated domain.Order
	err = m.store.Orders().Update(ctx, invoiceNumber, func(o *domain.Order) error {
		if sub.InvoiceDate != nil {
			o.InvoiceDate = sub.InvoiceDate.UTC()
		}
		o.CustomerPhone = cust.Phone
		o.CustomerName = cust.Name
		o.CustomerAddress = cust.Address
		o.Items = items
		o.Recalculate()
		o.UpdatedAt = m.now().UTC()
		updated = *o
		return nil
	})
	if err != nil {
		if isNew {
			m.compensateCustomer(ctx, cust.Phone)
		}
		return domain.Order{}, m.rejected("update", invoiceNumber, err)
	}

	m.log.Info("invoice updated",
		zap.String("invoice", invoiceNumber),
		zap.String("by", actor.ID),
		zap.String("total", updated.TotalAmount.String()))
	return updated, nil
}

// SetStatus moves an order to either status; both transitions are allowed.
func (m *Manager) SetStatus(ctx context.Context, actor domain.User, invoiceNumber string, status domain.Status) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	if _, err := m.editable(ctx, actor, invoiceNumber); err != nil {
		return domain.Order{}, m.rejected("set status", invoiceNumber, err)
	}

	var updated domain.Order
	err := m.store.Orders().Update(ctx, invoiceNumber, func(o *domain.Order) error {
		o.Status = status
		o.UpdatedAt = m.now().UTC()
		updated = *o
		return nil
	})
	if err != nil {
		return domain.Order{}, m.rejected("set status", invoiceNumber, err)
	}
	m.log.Info("invoice status changed",
		zap.String("invoice", invoiceNumber),
		zap.String("status", string(status)),
		zap.String("by", actor.ID))
	return updated, nil
}

// Delete removes an order. Only admins may delete.
func (m *Manager) Delete(ctx context.Context, actor domain.User, invoiceNumber string) error {
	if !actor.IsAdmin() {
		return m.rejected("delete", invoiceNumber,
			fmt.Errorf("%w: only an admin may delete invoices", domain.ErrForbidden))
	}
	if err := m.store.Orders().Delete(ctx, invoiceNumber); err != nil {
		return m.rejected("delete", invoiceNumber, err)
	}
	m.log.Info("invoice deleted", zap.String("invoice", invoiceNumber), zap.String("by", actor.ID))
	return nil
}

// editable loads an order the actor is allowed to change: its creator or
// any admin.
func (m *Manager) editable(ctx context.Context, actor domain.User, invoiceNumber string) (domain.Order, error) {
	o, err := m.store.Orders().Get(ctx, invoiceNumber)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.IsAdmin() && o.CreatedBy != actor.ID {
		return domain.Order{}, fmt.Errorf("%w: invoice %s belongs to another user", domain.ErrForbidden, invoiceNumber)
	}
	return o, nil
}

// ============================================
// Items and customer
// ============================================

// buildItems turns submitted lines into order items. A line whose position
// and product match the previous version keeps that item's snapshot; any
// other line is priced from the catalog.
func (m *Manager) buildItems(ctx context.Context, previous []domain.OrderItem, lines []LineInput) ([]domain.OrderItem, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: an invoice needs at least one item", domain.ErrValidation)
	}
	for i, l := range lines {
		if strings.TrimSpace(l.SKU) == "" {
			return nil, fmt.Errorf("%w: item %d has no product", domain.ErrValidation, i+1)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d must have a positive quantity", domain.ErrValidation, i+1)
		}
	}

	var catalog map[string]domain.Product
	draft := NewDraft(previous)
	for i, l := range lines {
		sku := strings.TrimSpace(l.SKU)
		if i >= len(previous) {
			draft.AddLine()
		}
		if i >= len(previous) || previous[i].SKU != sku {
			if catalog == nil {
				var err error
				if catalog, err = m.productIndex(ctx); err != nil {
					return nil, err
				}
			}
			p, ok := catalog[sku]
			if !ok {
				return nil, fmt.Errorf("%w: item %d: unknown product %q", domain.ErrValidation, i+1, sku)
			}
			if err := draft.SelectProduct(i, p); err != nil {
				return nil, err
			}
		}
		if err := draft.SetQuantity(i, l.Quantity); err != nil {
			return nil, err
		}
	}
	for len(draft.Items()) > len(lines) {
		if err := draft.RemoveLine(len(lines)); err != nil {
			return nil, err
		}
	}

	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return draft.Items(), nil
}

func (m *Manager) productIndex(ctx context.Context) (map[string]domain.Product, error) {
	products, err := m.store.Products().List(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]domain.Product, len(products))
	for _, p := range products {
		index[p.SKU] = p
	}
	return index, nil
}

// resolveCustomer returns the customer to snapshot and whether it still has
// to be created.
func (m *Manager) resolveCustomer(ctx context.Context, sel CustomerSelection) (domain.Customer, bool, error) {
	phone := strings.TrimSpace(sel.ExistingPhone)
	switch {
	case sel.New != nil && phone != "":
		return domain.Customer{}, false, fmt.Errorf("%w: choose an existing customer or a new one, not both", domain.ErrValidation)
	case sel.New != nil:
		c := domain.Customer{
			Phone:   strings.TrimSpace(sel.New.Phone),
			Name:    strings.TrimSpace(sel.New.Name),
			Address: strings.TrimSpace(sel.New.Address),
		}
		if c.Phone == "" || c.Name == "" || c.Address == "" {
			return domain.Customer{}, false, fmt.Errorf("%w: new customer needs phone, name and address", domain.ErrValidation)
		}
		return c, true, nil
	case phone != "":
		c, err := m.store.Customers().Get(ctx, phone)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Customer{}, false, fmt.Errorf("%w: unknown customer %q", domain.ErrValidation, phone)
		}
		if err != nil {
			return domain.Customer{}, false, err
		}
		return c, false, nil
	}
	return domain.Customer{}, false, fmt.Errorf("%w: a customer is required", domain.ErrValidation)
}

func (m *Manager) rejected(op, invoiceNumber string, err error) error {
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if invoiceNumber != "" {
		fields = append(fields, zap.String("invoice", invoiceNumber))
	}
	if errors.Is(err, domain.ErrStore) {
		m.log.Error("invoice operation failed", fields...)
	} else {
		m.log.Info("invoice operation rejected", fields...)
	}
	return err
}

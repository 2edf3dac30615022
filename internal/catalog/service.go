package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/domain"
	"github.com/example/sales-desk/internal/infrastructure/store"
)

// Service guards the users, products and customers collections: keys stay
// unique, records referenced by an order stay put and at least one Admin
// always exists. Every guard runs before the first write.
type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(s store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: s, log: log.Named("catalog")}
}

// ============================================
// Products
// ============================================

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.store.Products().List(ctx)
}

// AddProduct inserts a product. A taken SKU fails with domain.ErrDuplicateKey.
func (s *Service) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}

	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if _, err := s.store.Products().Create(ctx, p); err != nil {
		s.reject("add product", p.SKU, err)
		return domain.Product{}, err
	}
	s.log.Info("product added", zap.String("sku", p.SKU))
	return p, nil
}

// UpdateProduct replaces name and prices; the SKU is immutable. Existing
// invoices keep the prices they were created with.
func (s *Service) UpdateProduct(ctx context.Context, e ProductEdit) (domain.Product, error) {
	candidate := domain.Product{
		SKU:          e.SKU,
		Name:         strings.TrimSpace(e.Name),
		CostPrice:    e.CostPrice,
		SellingPrice: e.SellingPrice,
	}
	if err := validateProduct(candidate); err != nil {
		return domain.Product{}, err
	}

	var updated domain.Product
	err := s.store.Products().Update(ctx, e.SKU, func(p *domain.Product) error {
		p.Name = candidate.Name
		p.CostPrice = candidate.CostPrice
		p.SellingPrice = candidate.SellingPrice
		p.UpdatedAt = time.Now().UTC()
		updated = *p
		return nil
	})
	if err != nil {
		s.reject("update product", e.SKU, err)
		return domain.Product{}, err
	}
	return updated, nil
}

// DeleteProduct removes a product no order line refers to.
func (s *Service) DeleteProduct(ctx context.Context, sku string) error {
	if _, err := s.store.Products().Get(ctx, sku); err != nil {
		return err
	}

	orders, err := s.store.Orders().List(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.References(sku) {
			err := fmt.Errorf("%w: product %q is used by invoice %s", domain.ErrReferentialConflict, sku, o.InvoiceNumber)
			s.reject("delete product", sku, err)
			return err
		}
	}

	if err := s.store.Products().Delete(ctx, sku); err != nil {
		s.reject("delete product", sku, err)
		return err
	}
	s.log.Info("product deleted", zap.String("sku", sku))
	return nil
}

func validateProduct(p domain.Product) error {
	switch {
	case p.SKU == "":
		return fmt.Errorf("%w: product SKU is required", domain.ErrValidation)
	case p.Name == "":
		return fmt.Errorf("%w: product name is required", domain.ErrValidation)
	case p.CostPrice.IsNegative():
		return fmt.Errorf("%w: cost price must not be negative", domain.ErrValidation)
	case p.SellingPrice.IsNegative():
		return fmt.Errorf("%w: selling price must not be negative", domain.ErrValidation)
	}
	return nil
}

// ============================================
// Customers
// ============================================

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.store.Customers().List(ctx)
}

// AddCustomer inserts a customer. A taken phone number fails with
// domain.ErrDuplicateKey.
func (s *Service) AddCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	c = normalizeCustomer(c)
	if err := ValidateCustomer(c); err != nil {
		return domain.Customer{}, err
	}

	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if _, err := s.store.Customers().Create(ctx, c); err != nil {
		s.reject("add customer", c.Phone, err)
		return domain.Customer{}, err
	}
	s.log.Info("customer added", zap.String("phone", c.Phone))
	return c, nil
}

// UpdateCustomer replaces name and address; the phone number is the key and
// cannot change.
func (s *Service) UpdateCustomer(ctx context.Context, e CustomerEdit) (domain.Customer, error) {
	candidate := normalizeCustomer(domain.Customer{Phone: e.Phone, Name: e.Name, Address: e.Address})
	if err := ValidateCustomer(candidate); err != nil {
		return domain.Customer{}, err
	}

	var updated domain.Customer
	err := s.store.Customers().Update(ctx, candidate.Phone, func(c *domain.Customer) error {
		c.Name = candidate.Name
		c.Address = candidate.Address
		c.UpdatedAt = time.Now().UTC()
		updated = *c
		return nil
	})
	if err != nil {
		s.reject("update customer", candidate.Phone, err)
		return domain.Customer{}, err
	}
	return updated, nil
}

// DeleteCustomer removes a customer no order refers to.
func (s *Service) DeleteCustomer(ctx context.Context, phone string) error {
	if _, err := s.store.Customers().Get(ctx, phone); err != nil {
		return err
	}

	orders, err := s.store.Orders().List(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.CustomerPhone == phone {
			err := fmt.Errorf("%w: customer %q is used by invoice %s", domain.ErrReferentialConflict, phone, o.InvoiceNumber)
			s.reject("delete customer", phone, err)
			return err
		}
	}

	if err := s.store.Customers().Delete(ctx, phone); err != nil {
		s.reject("delete customer", phone, err)
		return err
	}
	s.log.Info("customer deleted", zap.String("phone", phone))
	return nil
}

func normalizeCustomer(c domain.Customer) domain.Customer {
	c.Phone = strings.TrimSpace(c.Phone)
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	return c
}

// ValidateCustomer checks that phone, name and address are all present.
func ValidateCustomer(c domain.Customer) error {
	var missing []string
	if c.Phone == "" {
		missing = append(missing, "phone")
	}
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: customer %s required", domain.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) reject(op, key string, err error) {
	if isStoreFailure(err) {
		s.log.Error(op+" failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.log.Info(op+" rejected", zap.String("key", key), zap.Error(err))
}

func isStoreFailure(err error) bool {
	return errors.Is(err, domain.ErrStore)
}

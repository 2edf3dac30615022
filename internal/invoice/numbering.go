package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/sales-desk/internal/domain"
)

// DefaultSeed is the first sequential invoice number.
const DefaultSeed = 1001

// Numbering assigns the invoice number of a new order given the orders that
// already exist.
type Numbering interface {
	Next(existing []domain.Order) string
}

// Sequential numbers invoices one past the highest numeric invoice number,
// starting at Seed. Non-numeric invoice numbers are ignored. Two concurrent
// creates can compute the same number; the store's unique key rejects the
// second and the manager renumbers.
type Sequential struct {
	Seed int64
}

func (s Sequential) Next(existing []domain.Order) string {
	seed := s.Seed
	if seed <= 0 {
		seed = DefaultSeed
	}

	var highest int64
	found := false
	for _, o := range existing {
		n, err := strconv.ParseInt(o.InvoiceNumber, 10, 64)
		if err != nil {
			continue
		}
		if !found || n > highest {
			highest, found = n, true
		}
	}
	if !found {
		return strconv.FormatInt(seed, 10)
	}
	return strconv.FormatInt(highest+1, 10)
}

// Timestamp numbers invoices "INV-<unix millis>", moving forward a
// millisecond at a time past numbers already taken.
type Timestamp struct {
	Now func() time.Time
}

func (t Timestamp) Next(existing []domain.Order) string {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	taken := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		taken[o.InvoiceNumber] = struct{}{}
	}
	ms := now().UnixMilli()
	for {
		n := "INV-" + strconv.FormatInt(ms, 10)
		if _, ok := taken[n]; !ok {
			return n
		}
		ms++
	}
}

// ParseNumbering maps a policy name to its Numbering.
func ParseNumbering(name string) (Numbering, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sequential":
		return Sequential{Seed: DefaultSeed}, nil
	case "timestamp":
		return Timestamp{}, nil
	}
	return nil, fmt.Errorf("%w: unknown invoice numbering %q", domain.ErrValidation, name)
}

// Package access derives the set of orders a user may see.
package access

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/sales-desk/internal/domain"
)

// StatusAll disables status narrowing.
const StatusAll = "all"

// Criteria refines the visible set. Status takes a status code, its display
// label or "all"; Search is matched case-insensitively against invoice
// number, customer name and customer phone.
type Criteria struct {
	Status string `form:"status" json:"status"`
	Search string `form:"q" json:"q"`
}

// Validate rejects unknown status filters.
func (c Criteria) Validate() error {
	if c.statusAll() {
		return nil
	}
	if _, err := domain.ParseStatus(c.Status); err != nil {
		return fmt.Errorf("invalid status filter: %w", err)
	}
	return nil
}

func (c Criteria) statusAll() bool {
	s := strings.TrimSpace(c.Status)
	return s == "" || strings.EqualFold(s, StatusAll)
}

// Filter returns the orders visible to actor that match c, most recent
// invoice date first. Orders with equal dates keep their input order. The
// input slice is not modified.
func Filter(actor domain.User, orders []domain.Order, c Criteria) []domain.Order {
	var status domain.Status
	filterStatus := !c.statusAll()
	if filterStatus {
		parsed, err := domain.ParseStatus(c.Status)
		if err != nil {
			return []domain.Order{}
		}
		status = parsed
	}
	term := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if !Visible(actor, o) {
			continue
		}
		if filterStatus && o.Status != status {
			continue
		}
		if term != "" && !matches(o, term) {
			continue
		}
		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].InvoiceDate.After(out[j].InvoiceDate)
	})
	return out
}

// Visible reports whether actor may see o: Admins see everything,
// Representatives only the orders they created.
func Visible(actor domain.User, o domain.Order) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Role == domain.RoleRepresentative && o.CreatedBy == actor.ID
}

func matches(o domain.Order, term string) bool {
	return strings.Contains(strings.ToLower(o.InvoiceNumber), term) ||
		strings.Contains(strings.ToLower(o.CustomerName), term) ||
		strings.Contains(strings.ToLower(o.CustomerPhone), term)
}

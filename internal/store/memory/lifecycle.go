package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

// trashTable is the kind-independent view of one soft-deletable map.
type trashTable interface {
	exists(id string) bool
	deletedAt(id string) *time.Time
	setDeletedAt(id string, at *time.Time)
	activeIDs() []string
	entries(kind domain.Kind) []domain.TrashEntry
	deletedBefore(cutoff time.Time) []string
	drop(id string)
}

type trashMap[T any] struct {
	rows   map[string]*T
	stamp  func(*T) **time.Time
	label  func(*T) string
	amount func(*T) decimal.Decimal
}

func (m trashMap[T]) exists(id string) bool {
	_, ok := m.rows[id]
	return ok
}

func (m trashMap[T]) deletedAt(id string) *time.Time {
	row, ok := m.rows[id]
	if !ok {
		return nil
	}
	return *m.stamp(row)
}

func (m trashMap[T]) setDeletedAt(id string, at *time.Time) {
	if row, ok := m.rows[id]; ok {
		*m.stamp(row) = at
	}
}

func (m trashMap[T]) activeIDs() []string {
	ids := make([]string, 0, len(m.rows))
	for id, row := range m.rows {
		if *m.stamp(row) == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m trashMap[T]) entries(kind domain.Kind) []domain.TrashEntry {
	out := make([]domain.TrashEntry, 0)
	for id, row := range m.rows {
		at := *m.stamp(row)
		if at == nil {
			continue
		}
		label := m.label(row)
		if label == "" {
			label = id
		}
		out = append(out, domain.TrashEntry{
			Kind:      kind,
			ID:        id,
			Label:     label,
			Amount:    m.amount(row),
			DeletedAt: *at,
		})
	}
	slices.SortFunc(out, func(a, b domain.TrashEntry) int {
		return byNewest(a.DeletedAt, b.DeletedAt, a.ID, b.ID)
	})
	return out
}

func (m trashMap[T]) deletedBefore(cutoff time.Time) []string {
	var ids []string
	for id, row := range m.rows {
		if at := *m.stamp(row); at != nil && at.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (m trashMap[T]) drop(id string) {
	delete(m.rows, id)
}

func noLabel[T any](*T) string { return "" }

// tableFor maps a kind onto its backing map. Caller holds s.mu.
func (s *Store) tableFor(kind domain.Kind) (trashTable, error) {
	switch kind {
	case domain.KindProducts:
		return trashMap[domain.Product]{
			rows:   s.products,
			stamp:  func(p *domain.Product) **time.Time { return &p.DeletedAt },
			label:  func(p *domain.Product) string { return p.Name },
			amount: func(p *domain.Product) decimal.Decimal { return p.Price },
		}, nil
	case domain.KindSales:
		return trashMap[domain.Sale]{
			rows:   s.sales,
			stamp:  func(v *domain.Sale) **time.Time { return &v.DeletedAt },
			label:  noLabel[domain.Sale],
			amount: func(v *domain.Sale) decimal.Decimal { return v.Total },
		}, nil
	case domain.KindCustomers:
		return trashMap[domain.Customer]{
			rows:   s.customers,
			stamp:  func(c *domain.Customer) **time.Time { return &c.DeletedAt },
			label:  func(c *domain.Customer) string { return c.Name },
			amount: func(c *domain.Customer) decimal.Decimal { return c.Credit },
		}, nil
	case domain.KindExpenses:
		return trashMap[domain.Expense]{
			rows:   s.expenses,
			stamp:  func(e *domain.Expense) **time.Time { return &e.DeletedAt },
			label:  func(e *domain.Expense) string { return e.Description },
			amount: func(e *domain.Expense) decimal.Decimal { return e.Amount },
		}, nil
	case domain.KindPurchases:
		return trashMap[domain.Purchase]{
			rows:   s.purchases,
			stamp:  func(p *domain.Purchase) **time.Time { return &p.DeletedAt },
			label:  noLabel[domain.Purchase],
			amount: func(p *domain.Purchase) decimal.Decimal { return p.Total },
		}, nil
	}
	return nil, fmt.Errorf("%w: kind %q", store.ErrInvalidRecord, kind)
}

// softDeletable returns the table for kind, or the error a database without a
// deleted_at column would raise. Caller holds s.mu.
func (s *Store) softDeletable(kind domain.Kind) (trashTable, error) {
	desc, ok := store.Describe(kind)
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", store.ErrInvalidRecord, kind)
	}
	if !desc.SoftDelete || s.withoutDeletedAt[kind] {
		return nil, fmt.Errorf("column %s.deleted_at does not exist: %w", desc.Table, store.ErrSoftDeleteUnsupported)
	}
	return s.tableFor(kind)
}

func (s *Store) SoftDelete(_ context.Context, kind domain.Kind, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.softDeletable(kind)
	if err != nil {
		return err
	}
	if !t.exists(id) {
		return store.ErrNotFound
	}
	if t.deletedAt(id) != nil {
		return nil
	}
	stamp := at.UTC()
	t.setDeletedAt(id, &stamp)
	return nil
}

func (s *Store) SoftDeleteAll(_ context.Context, kind domain.Kind, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.softDeletable(kind)
	if err != nil {
		return 0, err
	}
	ids := t.activeIDs()
	for _, id := range ids {
		stamp := at.UTC()
		t.setDeletedAt(id, &stamp)
	}
	return len(ids), nil
}

func (s *Store) ListDeleted(_ context.Context, kind domain.Kind) ([]domain.TrashEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.softDeletable(kind)
	if err != nil {
		return nil, err
	}
	return t.entries(kind), nil
}

func (s *Store) Restore(_ context.Context, kind domain.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.softDeletable(kind)
	if err != nil {
		return err
	}
	if !t.exists(id) {
		return store.ErrNotFound
	}
	t.setDeletedAt(id, nil)
	return nil
}

func (s *Store) HardDelete(_ context.Context, kind domain.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == domain.KindSuppliers {
		if _, ok := s.suppliers[id]; !ok {
			return store.ErrNotFound
		}
		if err := s.checkRemovable(kind, id); err != nil {
			return err
		}
		delete(s.suppliers, id)
		return nil
	}

	t, err := s.tableFor(kind)
	if err != nil {
		return err
	}
	if !t.exists(id) {
		return store.ErrNotFound
	}
	if err := s.checkRemovable(kind, id); err != nil {
		return err
	}
	s.removeLocked(kind, t, id)
	return nil
}

// PurgeDeletedBefore removes every trashed row of kind stamped strictly before
// cutoff. Rows still referenced elsewhere are counted as kept.
func (s *Store) PurgeDeletedBefore(_ context.Context, kind domain.Kind, cutoff time.Time) (store.PurgeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res store.PurgeResult
	t, err := s.softDeletable(kind)
	if err != nil {
		return res, err
	}
	for _, id := range t.deletedBefore(cutoff) {
		if s.checkRemovable(kind, id) != nil {
			res.Kept++
			continue
		}
		s.removeLocked(kind, t, id)
		res.Purged++
	}
	return res, nil
}

// checkRemovable mirrors the RESTRICT foreign keys of the SQL schema.
func (s *Store) checkRemovable(kind domain.Kind, id string) error {
	switch kind {
	case domain.KindProducts:
		if s.productReferenced(id) {
			return fmt.Errorf("%w: product %s appears on sale or purchase lines", store.ErrReferenced, id)
		}
	case domain.KindSuppliers:
		for _, p := range s.purchases {
			if p.SupplierID == id {
				return fmt.Errorf("%w: supplier %s has purchases", store.ErrReferenced, id)
			}
		}
	}
	return nil
}

// removeLocked deletes one row and applies the cascading foreign keys.
func (s *Store) removeLocked(kind domain.Kind, t trashTable, id string) {
	switch kind {
	case domain.KindSales:
		delete(s.saleLines, id)
	case domain.KindPurchases:
		delete(s.purchaseLines, id)
	case domain.KindCustomers:
		for _, sale := range s.sales {
			if sale.CustomerID == id {
				sale.CustomerID = ""
			}
		}
	}
	t.drop(id)
}

func (s *Store) DeleteAll(_ context.Context, table string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch table {
	case store.TableSaleItems:
		n := 0
		for _, lines := range s.saleLines {
			n += len(lines)
		}
		clear(s.saleLines)
		return n, nil
	case store.TablePurchaseItems:
		n := 0
		for _, lines := range s.purchaseLines {
			n += len(lines)
		}
		clear(s.purchaseLines)
		return n, nil
	case store.TableSales:
		n := len(s.sales)
		clear(s.saleLines)
		clear(s.sales)
		return n, nil
	case store.TablePurchases:
		n := len(s.purchases)
		clear(s.purchaseLines)
		clear(s.purchases)
		return n, nil
	case store.TableProducts:
		for id := range s.products {
			if err := s.checkRemovable(domain.KindProducts, id); err != nil {
				return 0, err
			}
		}
		n := len(s.products)
		clear(s.products)
		return n, nil
	case store.TableCustomers:
		for _, sale := range s.sales {
			sale.CustomerID = ""
		}
		n := len(s.customers)
		clear(s.customers)
		return n, nil
	case store.TableSuppliers:
		if len(s.purchases) > 0 {
			return 0, fmt.Errorf("%w: suppliers have purchases", store.ErrReferenced)
		}
		n := len(s.suppliers)
		clear(s.suppliers)
		return n, nil
	case store.TableExpenses:
		n := len(s.expenses)
		clear(s.expenses)
		return n, nil
	case store.TableCategories:
		for _, p := range s.products {
			p.CategoryID = ""
		}
		n := len(s.categories)
		clear(s.categories)
		return n, nil
	}
	return 0, fmt.Errorf("%w: table %q", store.ErrInvalidRecord, strings.TrimSpace(table))
}

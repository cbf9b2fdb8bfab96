package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if c.DeletedAt == nil {
			items = append(items, *c)
		}
	}
	slices.SortFunc(items, func(a, b domain.Customer) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return items, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok || c.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.ID = uuid.NewString()
	customer.CreatedAt = stampCreated(customer.CreatedAt)
	customer.DeletedAt = nil
	stored := customer
	s.customers[customer.ID] = &stored
	return &customer, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.customers[customer.ID]
	if !ok || current.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	current.Name = customer.Name
	current.Phone = customer.Phone
	current.Email = customer.Email
	current.Address = customer.Address
	current.Credit = customer.Credit
	out := *current
	return &out, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		items = append(items, *sup)
	}
	slices.SortFunc(items, func(a, b domain.Supplier) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return items, nil
}

func (s *Store) GetSupplier(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sup, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *sup
	return &out, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	supplier.ID = uuid.NewString()
	supplier.CreatedAt = stampCreated(supplier.CreatedAt)
	stored := supplier
	s.suppliers[supplier.ID] = &stored
	return &supplier, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.suppliers[supplier.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	current.Name = supplier.Name
	current.Contact = supplier.Contact
	current.Phone = supplier.Phone
	current.Email = supplier.Email
	current.Address = supplier.Address
	out := *current
	return &out, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if e.DeletedAt == nil {
			items = append(items, *e)
		}
	}
	slices.SortFunc(items, func(a, b domain.Expense) int {
		return byNewest(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return items, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[id]
	if !ok || e.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	out := *e
	return &out, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if strings.TrimSpace(expense.Description) == "" {
		return nil, store.ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expense.ID = uuid.NewString()
	expense.CreatedAt = stampCreated(expense.CreatedAt)
	expense.DeletedAt = nil
	stored := expense
	s.expenses[expense.ID] = &stored
	return &expense, nil
}

func (s *Store) UpdateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.expenses[expense.ID]
	if !ok || current.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	current.Description = expense.Description
	current.Category = expense.Category
	current.Amount = expense.Amount
	out := *current
	return &out, nil
}

package session

import (
	"context"
	"strings"

	"retailhub/backend/internal/domain"
)

func (s *Session) AddCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Customer{}, &OpError{Op: "add customer", Err: invalid(err)}
	}

	var created *domain.Customer
	err := s.apply(ctx, "add customer", func(ctx context.Context) (err error) {
		created, err = s.repo.CreateCustomer(ctx, domain.Customer{
			Name:    strings.TrimSpace(req.Name),
			Phone:   strings.TrimSpace(req.Phone),
			Email:   strings.TrimSpace(req.Email),
			Address: strings.TrimSpace(req.Address),
			Credit:  req.Credit.Round(2),
		})
		return err
	}, domain.KindCustomers)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logActivity(domain.ActivityCustomerAdd, "New customer: "+created.Name)
	return *created, nil
}

func (s *Session) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Customer{}, &OpError{Op: "update customer", Err: invalid(err)}
	}

	var updated *domain.Customer
	err := s.apply(ctx, "update customer", func(ctx context.Context) error {
		current, err := s.repo.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		next := *current
		if req.Name != nil {
			next.Name = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			next.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Email != nil {
			next.Email = strings.TrimSpace(*req.Email)
		}
		if req.Address != nil {
			next.Address = strings.TrimSpace(*req.Address)
		}
		if req.Credit != nil {
			next.Credit = req.Credit.Round(2)
		}
		updated, err = s.repo.UpdateCustomer(ctx, next)
		return err
	}, domain.KindCustomers)
	if err != nil {
		return domain.Customer{}, err
	}
	return *updated, nil
}

func (s *Session) AddSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Supplier{}, &OpError{Op: "add supplier", Err: invalid(err)}
	}

	var created *domain.Supplier
	err := s.apply(ctx, "add supplier", func(ctx context.Context) (err error) {
		created, err = s.repo.CreateSupplier(ctx, domain.Supplier{
			Name:    strings.TrimSpace(req.Name),
			Contact: strings.TrimSpace(req.Contact),
			Phone:   strings.TrimSpace(req.Phone),
			Email:   strings.TrimSpace(req.Email),
			Address: strings.TrimSpace(req.Address),
		})
		return err
	}, domain.KindSuppliers)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logActivity(domain.ActivitySupplierAdd, "New supplier: "+created.Name)
	return *created, nil
}

func (s *Session) UpdateSupplier(ctx context.Context, id string, req domain.SupplierUpdateRequest) (domain.Supplier, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Supplier{}, &OpError{Op: "update supplier", Err: invalid(err)}
	}

	var updated *domain.Supplier
	err := s.apply(ctx, "update supplier", func(ctx context.Context) error {
		current, err := s.repo.GetSupplier(ctx, id)
		if err != nil {
			return err
		}
		next := *current
		if req.Name != nil {
			next.Name = strings.TrimSpace(*req.Name)
		}
		if req.Contact != nil {
			next.Contact = strings.TrimSpace(*req.Contact)
		}
		if req.Phone != nil {
			next.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Email != nil {
			next.Email = strings.TrimSpace(*req.Email)
		}
		if req.Address != nil {
			next.Address = strings.TrimSpace(*req.Address)
		}
		updated, err = s.repo.UpdateSupplier(ctx, next)
		return err
	}, domain.KindSuppliers)
	if err != nil {
		return domain.Supplier{}, err
	}
	return *updated, nil
}

func (s *Session) AddExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Expense{}, &OpError{Op: "add expense", Err: invalid(err)}
	}

	var created *domain.Expense
	err := s.apply(ctx, "add expense", func(ctx context.Context) (err error) {
		created, err = s.repo.CreateExpense(ctx, domain.Expense{
			Description: strings.TrimSpace(req.Description),
			Category:    req.Category,
			Amount:      req.Amount.Round(2),
		})
		return err
	}, domain.KindExpenses)
	if err != nil {
		return domain.Expense{}, err
	}

	s.logActivity(domain.ActivityExpenseAdd, "New expense: "+created.Description+" ("+s.money(created.Amount)+")")
	return *created, nil
}

func (s *Session) UpdateExpense(ctx context.Context, id string, req domain.ExpenseUpdateRequest) (domain.Expense, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Expense{}, &OpError{Op: "update expense", Err: invalid(err)}
	}

	var updated *domain.Expense
	err := s.apply(ctx, "update expense", func(ctx context.Context) error {
		current, err := s.repo.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		next := *current
		if req.Description != nil {
			next.Description = strings.TrimSpace(*req.Description)
		}
		if req.Category != nil {
			next.Category = *req.Category
		}
		if req.Amount != nil {
			next.Amount = req.Amount.Round(2)
		}
		updated, err = s.repo.UpdateExpense(ctx, next)
		return err
	}, domain.KindExpenses)
	if err != nil {
		return domain.Expense{}, err
	}
	return *updated, nil
}

func findByID[T any](rows []T, id string, key func(T) string) (T, bool) {
	for _, row := range rows {
		if key(row) == id {
			return row, true
		}
	}
	var zero T
	return zero, false
}

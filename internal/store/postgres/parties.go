package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.queryActive(ctx, domain.KindCustomers, `
		SELECT c.id, c.name, c.phone, c.email, c.address, c.credit, c.created_at
		FROM customers c
		%s
		ORDER BY c.name, c.id
	`, "c")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Credit, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, address, credit, created_at
		FROM customers
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Credit, &c.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidRecord
	}
	customer.ID = uuid.NewString()
	customer.CreatedAt = stampCreated(customer.CreatedAt)
	customer.DeletedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, address, credit, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, customer.ID, customer.Name, customer.Phone, customer.Email, customer.Address, customer.Credit, customer.CreatedAt)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &customer, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, address = $5, credit = $6
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING created_at
	`, customer.ID, customer.Name, customer.Phone, customer.Email, customer.Address, customer.Credit).Scan(&customer.CreatedAt)
	if err != nil {
		return nil, notFoundOr(mapWriteErr(err))
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contact, phone, email, address, created_at
		FROM suppliers
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Contact, &sup.Phone, &sup.Email, &sup.Address, &sup.CreatedAt); err != nil {
			return nil, err
		}
		sup.CreatedAt = sup.CreatedAt.UTC()
		out = append(out, sup)
	}
	return out, rows.Err()
}

func (s *Store) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	var sup domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, contact, phone, email, address, created_at
		FROM suppliers
		WHERE id = $1
	`, id).Scan(&sup.ID, &sup.Name, &sup.Contact, &sup.Phone, &sup.Email, &sup.Address, &sup.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	sup.CreatedAt = sup.CreatedAt.UTC()
	return &sup, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalidRecord
	}
	supplier.ID = uuid.NewString()
	supplier.CreatedAt = stampCreated(supplier.CreatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact, phone, email, address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, supplier.ID, supplier.Name, supplier.Contact, supplier.Phone, supplier.Email, supplier.Address, supplier.CreatedAt)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &supplier, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE suppliers
		SET name = $2, contact = $3, phone = $4, email = $5, address = $6
		WHERE id = $1
		RETURNING created_at
	`, supplier.ID, supplier.Name, supplier.Contact, supplier.Phone, supplier.Email, supplier.Address).Scan(&supplier.CreatedAt)
	if err != nil {
		return nil, notFoundOr(mapWriteErr(err))
	}
	supplier.CreatedAt = supplier.CreatedAt.UTC()
	return &supplier, nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := s.queryActive(ctx, domain.KindExpenses, `
		SELECT e.id, e.description, e.category, e.amount, e.created_at
		FROM expenses e
		%s
		ORDER BY e.created_at DESC, e.id
	`, "e")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Description, &e.Category, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	var e domain.Expense
	err := s.db.QueryRowContext(ctx, `
		SELECT id, description, category, amount, created_at
		FROM expenses
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&e.ID, &e.Description, &e.Category, &e.Amount, &e.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if strings.TrimSpace(expense.Description) == "" {
		return nil, store.ErrInvalidRecord
	}
	expense.ID = uuid.NewString()
	expense.CreatedAt = stampCreated(expense.CreatedAt)
	expense.DeletedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, description, category, amount, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, expense.ID, expense.Description, expense.Category, expense.Amount, expense.CreatedAt)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &expense, nil
}

func (s *Store) UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE expenses
		SET description = $2, category = $3, amount = $4
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING created_at
	`, expense.ID, expense.Description, expense.Category, expense.Amount).Scan(&expense.CreatedAt)
	if err != nil {
		return nil, notFoundOr(mapWriteErr(err))
	}
	expense.CreatedAt = expense.CreatedAt.UTC()
	return &expense, nil
}

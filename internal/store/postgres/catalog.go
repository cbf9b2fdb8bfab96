package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

const productColumns = `p.id, p.name, p.sku, COALESCE(p.category_id, ''), COALESCE(c.name, ''), p.price, p.cost, p.stock, p.unit, p.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.CategoryID, &p.Category, &p.Price, &p.Cost, &p.Stock, &p.Unit, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	if p.Category == "" {
		p.Category = domain.UncategorizedLabel
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.queryActive(ctx, domain.KindProducts, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY p.name, p.id
	`, "p")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 AND p.deleted_at IS NULL
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidRecord
	}
	product.ID = uuid.NewString()
	product.CreatedAt = stampCreated(product.CreatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, category_id, price, cost, stock, unit, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, product.ID, product.Name, product.SKU, nullIfEmpty(product.CategoryID), product.Price, product.Cost, product.Stock, product.Unit, product.CreatedAt)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, sku = $3, category_id = $4, price = $5, cost = $6, stock = $7, unit = $8
		WHERE id = $1 AND deleted_at IS NULL
	`, product.ID, product.Name, product.SKU, nullIfEmpty(product.CategoryID), product.Price, product.Cost, product.Stock, product.Unit)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

// ResolveCategory relies on the unique name constraint so concurrent callers
// converge on one row.
func (s *Store) ResolveCategory(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", store.ErrInvalidRecord
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, uuid.NewString(), name); err != nil {
		return "", mapWriteErr(err)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = $1`, name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

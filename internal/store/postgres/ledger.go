package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

const saleColumns = `s.id, COALESCE(s.customer_id, ''), COALESCE(c.name, ''), s.subtotal, s.discount, s.total_amount, s.payment_method, s.created_at`

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	if err := row.Scan(&sale.ID, &sale.CustomerID, &sale.CustomerName, &sale.Subtotal, &sale.Discount, &sale.Total, &sale.PaymentMethod, &sale.CreatedAt); err != nil {
		return domain.Sale{}, err
	}
	if sale.CustomerName == "" {
		sale.CustomerName = domain.GuestCustomerLabel
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.Lines = []domain.SaleLine{}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.queryActive(ctx, domain.KindSales, `
		SELECT `+saleColumns+`
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		%s
		ORDER BY s.created_at DESC, s.id
	`, "s")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	index := make(map[string]int)
	ids := make([]string, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		index[sale.ID] = len(sales)
		ids = append(ids, sale.ID)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return sales, nil
	}

	lines, err := s.saleLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		i := index[line.SaleID]
		sales[i].Lines = append(sales[i].Lines, line)
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE s.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	lines, err := s.saleLines(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	sale.Lines = append(sale.Lines, lines...)
	return &sale, nil
}

func (s *Store) saleLines(ctx context.Context, saleIDs []string) ([]domain.SaleLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT si.id, si.sale_id, si.product_id, p.name, si.quantity, si.price, si.total
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = ANY($1)
		ORDER BY si.sale_id, si.position
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.SaleLine, 0, len(saleIDs)*2)
	for rows.Next() {
		var line domain.SaleLine
		if err := rows.Scan(&line.ID, &line.SaleID, &line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice, &line.Total); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// RecordSale inserts the header and lines and decrements stock relative to the
// stored value, all in one transaction.
func (s *Store) RecordSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidRecord
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale.ID = uuid.NewString()
	sale.CreatedAt = stampCreated(sale.CreatedAt)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, subtotal, discount, total_amount, payment_method, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.ID, nullIfEmpty(sale.CustomerID), sale.Subtotal, sale.Discount, sale.Total, sale.PaymentMethod, sale.CreatedAt); err != nil {
		return nil, mapWriteErr(err)
	}

	for i, line := range sale.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidRecord)
		}
		var name string
		err := tx.QueryRowContext(ctx, `
			UPDATE products SET stock = stock - $2
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING name
		`, line.ProductID, line.Quantity).Scan(&name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: unknown product %s", store.ErrInvalidRecord, line.ProductID)
			}
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, position, quantity, price, total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, uuid.NewString(), sale.ID, line.ProductID, i, line.Quantity, line.UnitPrice, line.Total); err != nil {
			return nil, mapWriteErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, sale.ID)
}

const purchaseColumns = `pu.id, pu.supplier_id, COALESCE(su.name, ''), pu.total_amount, pu.status, pu.created_at`

func (s *Store) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	rows, err := s.queryActive(ctx, domain.KindPurchases, `
		SELECT `+purchaseColumns+`
		FROM purchases pu
		LEFT JOIN suppliers su ON su.id = pu.supplier_id
		%s
		ORDER BY pu.created_at DESC, pu.id
	`, "pu")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0, 32)
	index := make(map[string]int)
	ids := make([]string, 0, 32)
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.SupplierName, &p.Total, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.Lines = []domain.PurchaseLine{}
		index[p.ID] = len(purchases)
		ids = append(ids, p.ID)
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return purchases, nil
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT pi.id, pi.purchase_id, pi.product_id, p.name, pi.quantity, pi.unit_cost, pi.total
		FROM purchase_items pi
		JOIN products p ON p.id = pi.product_id
		WHERE pi.purchase_id = ANY($1)
		ORDER BY pi.purchase_id, pi.position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var line domain.PurchaseLine
		if err := lineRows.Scan(&line.ID, &line.PurchaseID, &line.ProductID, &line.ProductName, &line.Quantity, &line.UnitCost, &line.Total); err != nil {
			return nil, err
		}
		i := index[line.PurchaseID]
		purchases[i].Lines = append(purchases[i].Lines, line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

// RecordPurchase inserts the header and lines and increments stock in one transaction.
func (s *Store) RecordPurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if len(purchase.Lines) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if purchase.Status == "" {
		purchase.Status = domain.PurchaseStatusCompleted
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	purchase.ID = uuid.NewString()
	purchase.CreatedAt = stampCreated(purchase.CreatedAt)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO purchases (id, supplier_id, total_amount, status, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, purchase.ID, purchase.SupplierID, purchase.Total, purchase.Status, purchase.CreatedAt); err != nil {
		return nil, mapWriteErr(err)
	}

	lines := make([]domain.PurchaseLine, 0, len(purchase.Lines))
	for i, line := range purchase.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidRecord)
		}
		err := tx.QueryRowContext(ctx, `
			UPDATE products SET stock = stock + $2
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING name
		`, line.ProductID, line.Quantity).Scan(&line.ProductName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: unknown product %s", store.ErrInvalidRecord, line.ProductID)
			}
			return nil, err
		}
		line.ID = uuid.NewString()
		line.PurchaseID = purchase.ID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_items (id, purchase_id, product_id, position, quantity, unit_cost, total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, line.ID, purchase.ID, line.ProductID, i, line.Quantity, line.UnitCost, line.Total); err != nil {
			return nil, mapWriteErr(err)
		}
		lines = append(lines, line)
	}

	var supplierName string
	if err := tx.QueryRowContext(ctx, `SELECT name FROM suppliers WHERE id = $1`, purchase.SupplierID).Scan(&supplierName); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	purchase.SupplierName = supplierName
	purchase.Lines = lines
	return &purchase, nil
}

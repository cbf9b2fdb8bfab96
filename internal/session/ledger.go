package session

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

var hundred = decimal.NewFromInt(100)

// RecordSale prices the cart from the stored catalog and writes the sale,
// its lines and the stock decrements as one unit.
func (s *Session) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Sale{}, &OpError{Op: "record sale", Err: invalid(err)}
	}

	var recorded *domain.Sale
	err := s.apply(ctx, "record sale", func(ctx context.Context) error {
		sale, err := s.priceSale(ctx, req)
		if err != nil {
			return err
		}
		recorded, err = s.repo.RecordSale(ctx, sale)
		return err
	}, domain.KindSales, domain.KindProducts)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logActivity(domain.ActivitySale, fmt.Sprintf("New sale: %d items for %s", recorded.ItemCount(), s.money(recorded.Total)))
	s.flagLowStock(recorded.Lines)
	return *recorded, nil
}

func (s *Session) priceSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	sale := domain.Sale{
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Lines:         make([]domain.SaleLine, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		product, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("%w: product %s: %w", store.ErrInvalidRecord, line.ProductID, err)
		}
		total := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		sale.Lines = append(sale.Lines, domain.SaleLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			Total:       total,
		})
		sale.Subtotal = sale.Subtotal.Add(total)
	}
	sale.Discount = sale.Subtotal.Mul(req.DiscountPercent).Div(hundred).Round(2)
	sale.Total = sale.Subtotal.Sub(sale.Discount)
	return sale, nil
}

// flagLowStock logs an activity for each sold product now under the threshold.
func (s *Session) flagLowStock(lines []domain.SaleLine) {
	if !s.Settings().LowStockAlerts {
		return
	}
	products := s.Snapshot().Products
	for _, line := range lines {
		p, ok := findByID(products, line.ProductID, func(p domain.Product) string { return p.ID })
		if ok && p.Stock < domain.LowStockThreshold {
			s.logActivity(domain.ActivityStockLow, fmt.Sprintf("Low stock: %s (%d left)", p.Name, p.Stock))
		}
	}
}

// RecordPurchase writes the purchase, its lines and the stock increments as one unit.
func (s *Session) RecordPurchase(ctx context.Context, req domain.PurchaseRequest) (domain.Purchase, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Purchase{}, &OpError{Op: "record purchase", Err: invalid(err)}
	}

	purchase := domain.Purchase{
		SupplierID: req.SupplierID,
		Status:     req.Status,
		Lines:      make([]domain.PurchaseLine, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		total := line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		purchase.Lines = append(purchase.Lines, domain.PurchaseLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitCost:  line.UnitCost.Round(2),
			Total:     total,
		})
		purchase.Total = purchase.Total.Add(total)
	}

	var recorded *domain.Purchase
	err := s.apply(ctx, "record purchase", func(ctx context.Context) (err error) {
		recorded, err = s.repo.RecordPurchase(ctx, purchase)
		return err
	}, domain.KindPurchases, domain.KindProducts)
	if err != nil {
		return domain.Purchase{}, err
	}

	s.logActivity(domain.ActivityPurchaseAdd, fmt.Sprintf("New purchase from %s: %s", recorded.SupplierName, s.money(recorded.Total)))
	return *recorded, nil
}

// Sale reads one sale from the store, trashed or not, for receipts.
func (s *Session) Sale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, &OpError{Op: "get sale", Err: err}
	}
	return *sale, nil
}

func (s *Session) money(v decimal.Decimal) string {
	return s.Settings().CurrencySymbol() + v.StringFixed(2)
}

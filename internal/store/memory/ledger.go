package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if sale.DeletedAt != nil {
			continue
		}
		items = append(items, s.saleView(*sale))
	}
	slices.SortFunc(items, func(a, b domain.Sale) int {
		return byNewest(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return items, nil
}

// GetSale returns the sale even when it sits in the trash so receipts stay printable.
func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	view := s.saleView(*sale)
	return &view, nil
}

func (s *Store) RecordSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.CustomerID != "" {
		if _, ok := s.customers[sale.CustomerID]; !ok {
			return nil, fmt.Errorf("%w: unknown customer %s", store.ErrInvalidRecord, sale.CustomerID)
		}
	}
	// all lines are checked before anything is written
	for _, line := range sale.Lines {
		p, ok := s.products[line.ProductID]
		if !ok || p.DeletedAt != nil {
			return nil, fmt.Errorf("%w: unknown product %s", store.ErrInvalidRecord, line.ProductID)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidRecord)
		}
	}

	sale.ID = uuid.NewString()
	sale.CreatedAt = stampCreated(sale.CreatedAt)
	sale.DeletedAt = nil
	lines := make([]domain.SaleLine, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		line.ID = uuid.NewString()
		line.SaleID = sale.ID
		line.ProductName = s.products[line.ProductID].Name
		lines = append(lines, line)
		s.products[line.ProductID].Stock -= line.Quantity
	}
	header := sale
	header.Lines = nil
	s.sales[sale.ID] = &header
	s.saleLines[sale.ID] = lines

	view := s.saleView(header)
	return &view, nil
}

// saleView attaches lines and the customer display name. Caller holds s.mu.
func (s *Store) saleView(sale domain.Sale) domain.Sale {
	sale.Lines = slices.Clone(s.saleLines[sale.ID])
	if sale.Lines == nil {
		sale.Lines = []domain.SaleLine{}
	}
	sale.CustomerName = domain.GuestCustomerLabel
	if c, ok := s.customers[sale.CustomerID]; ok {
		sale.CustomerName = c.Name
	}
	return sale
}

func (s *Store) ListPurchases(_ context.Context) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Purchase, 0, len(s.purchases))
	for _, p := range s.purchases {
		if p.DeletedAt != nil {
			continue
		}
		items = append(items, s.purchaseView(*p))
	}
	slices.SortFunc(items, func(a, b domain.Purchase) int {
		return byNewest(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return items, nil
}

func (s *Store) RecordPurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if len(purchase.Lines) == 0 {
		return nil, store.ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[purchase.SupplierID]; !ok {
		return nil, fmt.Errorf("%w: unknown supplier %s", store.ErrInvalidRecord, purchase.SupplierID)
	}
	for _, line := range purchase.Lines {
		p, ok := s.products[line.ProductID]
		if !ok || p.DeletedAt != nil {
			return nil, fmt.Errorf("%w: unknown product %s", store.ErrInvalidRecord, line.ProductID)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidRecord)
		}
	}

	purchase.ID = uuid.NewString()
	purchase.CreatedAt = stampCreated(purchase.CreatedAt)
	purchase.DeletedAt = nil
	if purchase.Status == "" {
		purchase.Status = domain.PurchaseStatusCompleted
	}
	lines := make([]domain.PurchaseLine, 0, len(purchase.Lines))
	for _, line := range purchase.Lines {
		line.ID = uuid.NewString()
		line.PurchaseID = purchase.ID
		line.ProductName = s.products[line.ProductID].Name
		lines = append(lines, line)
		s.products[line.ProductID].Stock += line.Quantity
	}
	header := purchase
	header.Lines = nil
	s.purchases[purchase.ID] = &header
	s.purchaseLines[purchase.ID] = lines

	view := s.purchaseView(header)
	return &view, nil
}

// purchaseView attaches lines and the supplier name. Caller holds s.mu.
func (s *Store) purchaseView(p domain.Purchase) domain.Purchase {
	p.Lines = slices.Clone(s.purchaseLines[p.ID])
	if p.Lines == nil {
		p.Lines = []domain.PurchaseLine{}
	}
	p.SupplierName = ""
	if sup, ok := s.suppliers[p.SupplierID]; ok {
		p.SupplierName = sup.Name
	}
	return p
}

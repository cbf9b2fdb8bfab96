package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.DeletedAt != nil {
			continue
		}
		items = append(items, s.productView(*p))
	}
	slices.SortFunc(items, func(a, b domain.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return items, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok || p.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	view := s.productView(*p)
	return &view, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.CategoryID != "" {
		if _, ok := s.categories[product.CategoryID]; !ok {
			return nil, store.ErrInvalidRecord
		}
	}
	product.ID = uuid.NewString()
	product.CreatedAt = stampCreated(product.CreatedAt)
	product.DeletedAt = nil
	product.Category = ""
	stored := product
	s.products[product.ID] = &stored
	view := s.productView(stored)
	return &view, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok || current.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	if product.CategoryID != "" {
		if _, ok := s.categories[product.CategoryID]; !ok {
			return nil, store.ErrInvalidRecord
		}
	}
	current.Name = product.Name
	current.SKU = product.SKU
	current.CategoryID = product.CategoryID
	current.Price = product.Price
	current.Cost = product.Cost
	current.Stock = product.Stock
	current.Unit = product.Unit
	view := s.productView(*current)
	return &view, nil
}

func (s *Store) ResolveCategory(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", store.ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveCategoryLocked(name), nil
}

func (s *Store) resolveCategoryLocked(name string) string {
	for _, c := range s.categories {
		if c.Name == name {
			return c.ID
		}
	}
	c := &domain.Category{ID: uuid.NewString(), Name: name}
	s.categories[c.ID] = c
	return c.ID
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		items = append(items, *c)
	}
	slices.SortFunc(items, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return items, nil
}

// productView fills the joined category name. Caller holds s.mu.
func (s *Store) productView(p domain.Product) domain.Product {
	p.Category = domain.UncategorizedLabel
	if c, ok := s.categories[p.CategoryID]; ok {
		p.Category = c.Name
	}
	return p
}

// productReferenced reports whether any sale or purchase line points at the product.
func (s *Store) productReferenced(id string) bool {
	for _, lines := range s.saleLines {
		for _, line := range lines {
			if line.ProductID == id {
				return true
			}
		}
	}
	for _, lines := range s.purchaseLines {
		for _, line := range lines {
			if line.ProductID == id {
				return true
			}
		}
	}
	return false
}

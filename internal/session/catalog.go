package session

import (
	"context"
	"strings"

	"retailhub/backend/internal/domain"
)

func (s *Session) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Product{}, &OpError{Op: "add product", Err: invalid(err)}
	}

	var created *domain.Product
	err := s.apply(ctx, "add product", func(ctx context.Context) error {
		categoryID, err := s.resolveCategory(ctx, req.Category)
		if err != nil {
			return err
		}
		created, err = s.repo.CreateProduct(ctx, domain.Product{
			Name:       strings.TrimSpace(req.Name),
			SKU:        strings.TrimSpace(req.SKU),
			CategoryID: categoryID,
			Price:      req.Price.Round(2),
			Cost:       req.Cost.Round(2),
			Stock:      req.Stock,
			Unit:       strings.TrimSpace(req.Unit),
		})
		return err
	}, domain.KindProducts)
	if err != nil {
		return domain.Product{}, err
	}

	s.logActivity(domain.ActivityProductAdd, "Added product: "+created.Name)
	return *created, nil
}

func (s *Session) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Product{}, &OpError{Op: "update product", Err: invalid(err)}
	}

	var updated *domain.Product
	err := s.apply(ctx, "update product", func(ctx context.Context) error {
		current, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		next := *current
		if req.Name != nil {
			next.Name = strings.TrimSpace(*req.Name)
		}
		if req.SKU != nil {
			next.SKU = strings.TrimSpace(*req.SKU)
		}
		if req.Category != nil {
			if next.CategoryID, err = s.resolveCategory(ctx, *req.Category); err != nil {
				return err
			}
		}
		if req.Price != nil {
			next.Price = req.Price.Round(2)
		}
		if req.Cost != nil {
			next.Cost = req.Cost.Round(2)
		}
		if req.Stock != nil {
			next.Stock = *req.Stock
		}
		if req.Unit != nil {
			next.Unit = strings.TrimSpace(*req.Unit)
		}
		updated, err = s.repo.UpdateProduct(ctx, next)
		return err
	}, domain.KindProducts)
	if err != nil {
		return domain.Product{}, err
	}

	s.logActivity(domain.ActivityOther, "Updated product: "+updated.Name)
	return *updated, nil
}

// resolveCategory finds or creates the category by exact name. A blank name
// leaves the product uncategorized.
func (s *Session) resolveCategory(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == domain.UncategorizedLabel {
		return "", nil
	}
	return s.repo.ResolveCategory(ctx, name)
}

func (s *Session) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, &OpError{Op: "list categories", Err: err}
	}
	return categories, nil
}

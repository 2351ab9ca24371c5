package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
)

// LoadProducts replaces the local catalog. On a read error the previous catalog is kept.
func (s *Store) LoadProducts(ctx context.Context) error {
	products, err := s.gw.Products().List(ctx, gateway.ProductFilter{})
	if err != nil {
		s.logger.Warn("product load failed, keeping previous catalog", "error", err)
		return err
	}
	s.mu.Lock()
	s.products = products
	s.mu.Unlock()
	return nil
}

// Products filters the local catalog by category (exact, case-insensitive) and a
// case-insensitive search over title and description.
func (s *Store) Products(filter gateway.ProductFilter) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	sortProducts(out, filter.SortBy, filter.Order)
	return out
}

// sortProducts orders in place. An unknown or empty field keeps the catalog order.
func sortProducts(products []models.Product, field string, order gateway.SortOrder) {
	var less func(a, b models.Product) bool
	switch field {
	case "price":
		less = func(a, b models.Product) bool { return a.Price.LessThan(b.Price) }
	case "title":
		less = func(a, b models.Product) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case "rating":
		less = func(a, b models.Product) bool { return a.Rating < b.Rating }
	case "reviews":
		less = func(a, b models.Product) bool { return a.Reviews < b.Reviews }
	case "created_at":
		less = func(a, b models.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool {
		if order == gateway.SortAsc {
			return less(products[i], products[j])
		}
		return less(products[j], products[i])
	})
}

// Product reads id from the gateway and refreshes its entry in the local catalog.
// A deleted product is dropped locally; on other read errors the local copy, if
// any, is served.
func (s *Store) Product(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.gw.Products().Get(ctx, id)
	if err == nil {
		s.mu.Lock()
		for i := range s.products {
			if s.products[i].ID == id {
				s.products[i] = *p
			}
		}
		s.mu.Unlock()
		return p, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(err, gateway.ErrNotFound) {
		kept := s.products[:0]
		for _, local := range s.products {
			if local.ID != id {
				kept = append(kept, local)
			}
		}
		s.products = kept
		return nil, err
	}
	for _, local := range s.products {
		if local.ID == id {
			s.logger.Warn("product read failed, serving local copy", "product_id", id, "error", err)
			return &local, nil
		}
	}
	return nil, err
}

// Categories lists the distinct categories of the local catalog, sorted.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, p := range s.products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}

func (s *Store) AddProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.gw.Products().Insert(ctx, &product); err != nil {
		return nil, err
	}
	s.reloadProducts(ctx)
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, update models.ProductUpdate) error {
	if _, err := s.requireAdmin(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.gw.Products().Update(ctx, id, update); err != nil {
		return err
	}
	s.reloadProducts(ctx)
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.requireAdmin(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.gw.Products().Delete(ctx, id); err != nil {
		return err
	}
	s.reloadProducts(ctx)

	// the gateway drops cart rows of deleted products
	s.mu.Lock()
	kept := s.cart[:0]
	for _, line := range s.cart {
		if line.ID != id {
			kept = append(kept, line)
		}
	}
	s.cart = kept
	s.mu.Unlock()
	return nil
}

// ImportProducts inserts each product and reloads once. It stops at the first failure
// and reports how many were stored.
func (s *Store) ImportProducts(ctx context.Context, products []models.Product) (int, error) {
	if _, err := s.requireAdmin(); err != nil {
		return 0, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored := 0
	var err error
	for i := range products {
		if err = s.gw.Products().Insert(ctx, &products[i]); err != nil {
			break
		}
		stored++
	}
	if stored > 0 {
		s.reloadProducts(ctx)
	}
	return stored, err
}

func (s *Store) reloadProducts(ctx context.Context) {
	if err := s.LoadProducts(ctx); err != nil {
		s.logger.Warn("product reload after write failed", "error", err)
	}
}

// Owns reports whether the current user has purchased productID.
func (s *Store) Owns(productID string) bool {
	return s.session.User().HasPurchased(productID)
}

// Library returns the products the current user owns. Products removed from the
// catalog since purchase are skipped.
func (s *Store) Library(ctx context.Context) ([]models.Product, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	out := make([]models.Product, 0, len(user.PurchasedProducts))
	for _, id := range user.PurchasedProducts {
		p, err := s.Product(ctx, id)
		if err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

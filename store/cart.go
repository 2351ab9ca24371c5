package store

import (
	"context"

	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/shopspring/decimal"
)

// Totals is the price breakdown of a cart or order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Items    int             `json:"items"`
}

func computeTotals(lines []models.CartLine, rate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	items := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
		items += line.Quantity
	}
	tax := subtotal.Mul(rate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
		Items:    items,
	}
}

// LoadCart replaces the local cart with the user's remote rows. On a read error
// the previous cart is kept.
func (s *Store) LoadCart(ctx context.Context) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cartState = CartLoading
	s.mu.Unlock()

	rows, err := s.gw.CartItems().List(ctx, user.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartState = CartReady
	if err != nil {
		return err
	}
	lines := make([]models.CartLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, models.NewCartLine(row))
	}
	s.cart = lines
	return nil
}

// Cart returns a copy of the local cart.
func (s *Store) Cart() []models.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CartLine{}, s.cart...)
}

func (s *Store) CartState() CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartState
}

func (s *Store) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeTotals(s.cart, s.taxRate)
}

func (s *Store) findLine(productID string) (models.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, line := range s.cart {
		if line.ID == productID {
			return line, true
		}
	}
	return models.CartLine{}, false
}

// AddToCart increments the quantity of an existing line or inserts a new one.
func (s *Store) AddToCart(ctx context.Context, product models.Product) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if line, ok := s.findLine(product.ID); ok {
		return s.incrementLine(ctx, line)
	}

	item := &models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1}
	if err := s.gw.CartItems().Insert(ctx, item); err != nil {
		// Another session of the same user may already hold the row.
		if reloadErr := s.LoadCart(ctx); reloadErr != nil {
			return err
		}
		line, ok := s.findLine(product.ID)
		if !ok {
			return err
		}
		s.logger.Info("cart row added elsewhere, incrementing", "user_id", user.ID, "product_id", product.ID)
		return s.incrementLine(ctx, line)
	}
	item.Product = product

	s.mu.Lock()
	s.cart = append(s.cart, models.NewCartLine(*item))
	s.mu.Unlock()
	return nil
}

// incrementLine must be called with writeMu held.
func (s *Store) incrementLine(ctx context.Context, line models.CartLine) error {
	qty := line.Quantity + 1
	if err := s.gw.CartItems().Update(ctx, line.ItemID, models.CartItemUpdate{Quantity: &qty}); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.cart {
		if s.cart[i].ID == line.ID {
			s.cart[i].Quantity = qty
		}
	}
	s.mu.Unlock()
	return nil
}

// RemoveFromCart deletes the product's line. Without a user, or for a product not
// in the cart remotely, it does nothing.
func (s *Store) RemoveFromCart(ctx context.Context, productID string) error {
	user := s.session.User()
	if user == nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.gw.CartItems().Delete(ctx, user.ID, productID); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.cart[:0]
	for _, line := range s.cart {
		if line.ID != productID {
			kept = append(kept, line)
		}
	}
	s.cart = kept
	s.mu.Unlock()
	return nil
}

func (s *Store) ClearCart(ctx context.Context) error {
	user := s.session.User()
	if user == nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.clearCart(ctx, user.ID)
}

// clearCart must be called with writeMu held.
func (s *Store) clearCart(ctx context.Context, userID string) error {
	if err := s.gw.CartItems().DeleteAll(ctx, userID); err != nil {
		return err
	}
	s.resetCart()
	return nil
}

func (s *Store) resetCart() {
	s.mu.Lock()
	s.cart = []models.CartLine{}
	s.mu.Unlock()
}

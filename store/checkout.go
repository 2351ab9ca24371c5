package store

import (
	"context"
	"fmt"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
)

// Receipt describes a placed order.
type Receipt struct {
	Order  models.Order `json:"order"`
	Totals Totals       `json:"totals"`
	// PurchasesPending is set when the entitlement records could not be written.
	// The reconciler fills them in later.
	PurchasesPending bool `json:"purchases_pending"`
}

// Checkout turns the cart into a completed order. It returns a nil receipt and
// no error when there is no user or the cart is empty. The order is written as
// pending and completed once its items are stored. Failures up to that point
// abort with the cart intact; a purchase-record failure is only logged.
func (s *Store) Checkout(ctx context.Context) (*Receipt, error) {
	user := s.session.User()
	if user == nil {
		return nil, nil
	}
	if !s.checkingOut.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInProgress
	}
	defer s.checkingOut.Store(false)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	lines := s.Cart()
	if len(lines) == 0 {
		return nil, nil
	}
	totals := computeTotals(lines, s.taxRate)

	order := &models.Order{
		UserID:   user.ID,
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Total:    totals.Total,
		Status:   models.OrderStatusPending,
	}
	if err := s.gw.Orders().Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	if err := s.gw.OrderItems().Insert(ctx, items); err != nil {
		s.logger.Error("order items insert failed, order left pending", "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("failed to record order items: %w", err)
	}
	// only a fully itemized order counts as placed
	completed := models.OrderStatusCompleted
	if err := s.gw.Orders().Update(ctx, order.ID, models.OrderUpdate{Status: &completed}); err != nil {
		s.logger.Error("order completion failed, order left pending", "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}
	order.Status = completed
	order.Items = items

	receipt := &Receipt{Order: *order, Totals: totals}

	productIDs := make([]string, 0, len(lines))
	records := make([]models.PurchaseRecord, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.ID)
		records = append(records, models.PurchaseRecord{UserID: user.ID, ProductID: line.ID, OrderID: order.ID})
	}
	if err := s.gw.Purchases().Insert(ctx, records); err != nil {
		s.logger.Error("purchase records insert failed", "order_id", order.ID, "user_id", user.ID, "error", err)
		receipt.PurchasesPending = true
	}

	if err := s.clearCart(ctx, user.ID); err != nil {
		s.logger.Warn("remote cart clear failed after checkout", "user_id", user.ID, "error", err)
		s.resetCart()
	}

	s.session.AddPurchases(user.ID, productIDs...)

	s.logger.Info("order placed", "order_id", order.ID, "user_id", user.ID, "total", totals.Total.StringFixed(2))
	if s.observer != nil {
		s.observer(*order)
	}
	return receipt, nil
}

// OrderHistory lists the current user's orders, newest first.
func (s *Store) OrderHistory(ctx context.Context) ([]models.Order, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	return s.gw.Orders().List(ctx, gateway.OrderFilter{UserID: user.ID})
}

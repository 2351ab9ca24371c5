package store

import (
	"context"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/shopspring/decimal"
)

type Overview struct {
	Revenue           decimal.Decimal `json:"revenue"`
	OrderCount        int             `json:"order_count"`
	ProductCount      int             `json:"product_count"`
	CustomerCount     int             `json:"customer_count"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	RecentOrders      []OrderSummary  `json:"recent_orders"`
}

// OrderSummary is one row of the admin order table.
type OrderSummary struct {
	models.Order
	CustomerEmail string `json:"customer_email"`
	ItemCount     int    `json:"item_count"`
}

// Customer is one row of the admin customer table.
type Customer struct {
	models.Profile
	OrderCount int             `json:"order_count"`
	Spent      decimal.Decimal `json:"spent"`
}

const recentOrderLimit = 5

// Overview sums revenue over completed orders.
func (s *Store) Overview(ctx context.Context) (*Overview, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}

	orders, err := s.Orders(ctx, gateway.OrderFilter{})
	if err != nil {
		return nil, err
	}
	products, err := s.gw.Products().List(ctx, gateway.ProductFilter{})
	if err != nil {
		return nil, err
	}
	profiles, err := s.gw.Profiles().List(ctx)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		Revenue:           decimal.Zero,
		ProductCount:      len(products),
		AverageOrderValue: decimal.Zero,
		RecentOrders:      []OrderSummary{},
	}
	for _, p := range profiles {
		if p.Role == models.RoleCustomer {
			ov.CustomerCount++
		}
	}
	for _, o := range orders {
		if o.Status != models.OrderStatusCompleted {
			continue
		}
		ov.Revenue = ov.Revenue.Add(o.Total)
		ov.OrderCount++
	}
	if ov.OrderCount > 0 {
		ov.AverageOrderValue = ov.Revenue.Div(decimal.NewFromInt(int64(ov.OrderCount))).Round(2)
	}
	if len(orders) > recentOrderLimit {
		orders = orders[:recentOrderLimit]
	}
	ov.RecentOrders = append(ov.RecentOrders, orders...)
	return ov, nil
}

// Orders lists orders newest first with their customer's email.
func (s *Store) Orders(ctx context.Context, filter gateway.OrderFilter) ([]OrderSummary, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}

	orders, err := s.gw.Orders().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	profiles, err := s.gw.Profiles().List(ctx)
	if err != nil {
		return nil, err
	}
	emails := make(map[string]string, len(profiles))
	for _, p := range profiles {
		emails[p.ID] = p.Email
	}

	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		count := 0
		for _, item := range o.Items {
			count += item.Quantity
		}
		out = append(out, OrderSummary{Order: o, CustomerEmail: emails[o.UserID], ItemCount: count})
	}
	return out, nil
}

// Customers lists customer profiles with what they spent on completed orders.
func (s *Store) Customers(ctx context.Context) ([]Customer, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}

	profiles, err := s.gw.Profiles().List(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.gw.Orders().List(ctx, gateway.OrderFilter{Status: models.OrderStatusCompleted})
	if err != nil {
		return nil, err
	}

	spent := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, o := range orders {
		spent[o.UserID] = spent[o.UserID].Add(o.Total)
		counts[o.UserID]++
	}

	out := make([]Customer, 0, len(profiles))
	for _, p := range profiles {
		if p.Role != models.RoleCustomer {
			continue
		}
		out = append(out, Customer{Profile: p, OrderCount: counts[p.ID], Spent: spent[p.ID]})
	}
	return out, nil
}

// UpdateOrderStatus moves an order to status. Leaving completed revokes the order's
// purchase records; entering completed grants them from the order items. Live
// sessions of the customer are told through the PurchasesChanged hook.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	order, err := s.gw.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}

	if err := s.gw.Orders().Update(ctx, orderID, models.OrderUpdate{Status: &status}); err != nil {
		return nil, err
	}
	previous := order.Status
	order.Status = status

	switch {
	case previous == models.OrderStatusCompleted:
		if err := s.gw.Purchases().DeleteByOrder(ctx, orderID); err != nil {
			s.logger.Error("purchase revocation failed", "order_id", orderID, "error", err)
			return order, err
		}
	case status == models.OrderStatusCompleted:
		if err := s.gw.Purchases().Insert(ctx, purchaseRecordsFor(*order)); err != nil {
			s.logger.Error("purchase grant failed, reconciler will retry", "order_id", orderID, "error", err)
		}
	}
	if s.purchasesChanged != nil && (previous == models.OrderStatusCompleted || status == models.OrderStatusCompleted) {
		s.purchasesChanged(ctx, order.UserID)
	}

	s.logger.Info("order status changed", "order_id", orderID, "from", previous, "to", status)
	return order, nil
}

func purchaseRecordsFor(order models.Order) []models.PurchaseRecord {
	records := make([]models.PurchaseRecord, 0, len(order.Items))
	for _, item := range order.Items {
		records = append(records, models.PurchaseRecord{UserID: order.UserID, ProductID: item.ProductID, OrderID: order.ID})
	}
	return records
}

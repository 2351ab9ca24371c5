package store

import (
	"context"
	"testing"
	"time"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func seedCompletedOrder(f *fixture, userID string, total string, productIDs ...string) models.Order {
	items := make([]models.OrderItem, 0, len(productIDs))
	for _, id := range productIDs {
		items = append(items, models.OrderItem{ProductID: id, Quantity: 1, Price: decimal.RequireFromString(total)})
	}
	return f.mem.SeedOrder(models.Order{
		UserID: userID,
		Total:  decimal.RequireFromString(total),
		Status: models.OrderStatusCompleted,
		Items:  items,
	})
}

func TestAdminViews(t *testing.T) {
	ctx := context.Background()

	t.Run("RequireAdmin", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.Overview(ctx)
		require.ErrorIs(t, err, ErrNotSignedIn)

		f.signIn(t, models.RoleCustomer)
		_, err = f.store.Overview(ctx)
		require.ErrorIs(t, err, ErrForbidden)
		_, err = f.store.Orders(ctx, gateway.OrderFilter{})
		require.ErrorIs(t, err, ErrForbidden)
		_, err = f.store.Customers(ctx)
		require.ErrorIs(t, err, ErrForbidden)
		_, err = f.store.UpdateOrderStatus(ctx, "o1", models.OrderStatusRefunded)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("OverviewAndCustomers", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t, models.RoleAdmin)
		ana := f.mem.SeedUser("ana@example.com", "password123", "Ana", models.RoleCustomer)
		bo := f.mem.SeedUser("bo@example.com", "password123", "Bo", models.RoleCustomer)
		kit := f.product("UI Kit", "49.00")

		seedCompletedOrder(f, ana, "52.92", kit.ID)
		seedCompletedOrder(f, ana, "16.20", kit.ID)
		refunded := seedCompletedOrder(f, bo, "100.00", kit.ID)
		status := models.OrderStatusRefunded
		require.NoError(t, f.mem.Orders().Update(ctx, refunded.ID, models.OrderUpdate{Status: &status}))

		ov, err := f.store.Overview(ctx)
		require.NoError(t, err)
		requireMoney(t, "69.12", ov.Revenue)
		require.Equal(t, 2, ov.OrderCount)
		require.Equal(t, 1, ov.ProductCount)
		require.Equal(t, 2, ov.CustomerCount)
		requireMoney(t, "34.56", ov.AverageOrderValue)
		require.Len(t, ov.RecentOrders, 3)

		customers, err := f.store.Customers(ctx)
		require.NoError(t, err)
		require.Len(t, customers, 2)
		for _, c := range customers {
			switch c.ID {
			case ana:
				requireMoney(t, "69.12", c.Spent)
				require.Equal(t, 2, c.OrderCount)
			case bo:
				requireMoney(t, "0.00", c.Spent)
			}
		}

		orders, err := f.store.Orders(ctx, gateway.OrderFilter{})
		require.NoError(t, err)
		require.Equal(t, refunded.ID, orders[0].ID)
		require.Equal(t, "bo@example.com", orders[0].CustomerEmail)
		require.Equal(t, 1, orders[0].ItemCount)
	})

	t.Run("RefundRevokesAndCompletionRegrants", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t, models.RoleAdmin)
		ana := f.mem.SeedUser("ana@example.com", "password123", "Ana", models.RoleCustomer)
		kit := f.product("UI Kit", "49.00")
		order := seedCompletedOrder(f, ana, "52.92", kit.ID)
		require.NoError(t, f.mem.Purchases().Insert(ctx, purchaseRecordsFor(order)))

		updated, err := f.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusRefunded)
		require.NoError(t, err)
		require.Equal(t, models.OrderStatusRefunded, updated.Status)
		require.Empty(t, f.mem.PurchaseRecords())

		_, err = f.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCompleted)
		require.NoError(t, err)
		records := f.mem.PurchaseRecords()
		require.Len(t, records, 1)
		require.Equal(t, kit.ID, records[0].ProductID)

		_, err = f.store.UpdateOrderStatus(ctx, "missing", models.OrderStatusRefunded)
		require.ErrorIs(t, err, gateway.ErrNotFound)
	})
}

func TestReconciler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ana := f.mem.SeedUser("ana@example.com", "password123", "Ana", models.RoleCustomer)
	kit := f.product("UI Kit", "49.00")
	icons := f.product("Icons", "15.00")

	complete := seedCompletedOrder(f, ana, "64.00", kit.ID, icons.ID)
	require.NoError(t, f.mem.Purchases().Insert(ctx, []models.PurchaseRecord{{UserID: ana, ProductID: kit.ID, OrderID: complete.ID}}))
	pending := f.mem.SeedOrder(models.Order{UserID: ana, Status: models.OrderStatusPending, Items: []models.OrderItem{{ProductID: kit.ID, Quantity: 1}}})

	r := NewReconciler(f.mem, nil)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, ReconcileReport{OrdersScanned: 1, OrdersRepaired: 1, RecordsCreated: 1}, report)

	again, err := r.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, again.RecordsCreated)

	for _, rec := range f.mem.PurchaseRecords() {
		require.NotEqual(t, pending.ID, rec.OrderID)
	}

	f.mem.Fail("orders.list", nil)
	_, err = r.Run(ctx)
	require.True(t, gateway.IsReadError(err))
}

func TestNextRunAt(t *testing.T) {
	loc := time.UTC
	before := time.Date(2024, 5, 1, 1, 30, 0, 0, loc)
	require.Equal(t, time.Date(2024, 5, 1, 3, 0, 0, 0, loc), nextRunAt(before, 3, 0))

	exactly := time.Date(2024, 5, 1, 3, 0, 0, 0, loc)
	require.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, loc), nextRunAt(exactly, 3, 0))
}

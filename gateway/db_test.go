package gateway

import (
	"context"
	"testing"

	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a private in-memory SQLite database with every table migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every pooled connection to ":memory:" would otherwise see its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func seedProduct(t *testing.T, g *DB, title, category, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:    title,
		Category: category,
		Price:    decimal.RequireFromString(price),
		Features: models.StringList{"Lifetime updates"},
	}
	require.NoError(t, g.Products().Insert(context.Background(), p))
	return p
}

func TestProductCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertAndGet", func(t *testing.T) {
		g := New(setupTestDB(t))
		p := seedProduct(t, g, "UI Kit", "Templates", "49.00")
		require.NotEmpty(t, p.ID)

		got, err := g.Products().Get(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, "UI Kit", got.Title)
		require.True(t, got.Price.Equal(decimal.RequireFromString("49")))
		require.Equal(t, models.StringList{"Lifetime updates"}, got.Features)
	})

	t.Run("GetMissing", func(t *testing.T) {
		g := New(setupTestDB(t))
		_, err := g.Products().Get(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
		require.True(t, IsReadError(err))
	})

	t.Run("InsertRejectsInvalid", func(t *testing.T) {
		g := New(setupTestDB(t))
		err := g.Products().Insert(ctx, &models.Product{Title: "Bad", Price: decimal.NewFromInt(-1)})
		require.ErrorIs(t, err, models.ErrProductPriceInvalid)
		require.True(t, IsWriteError(err))
	})

	t.Run("ListFiltersByCategoryAndSearch", func(t *testing.T) {
		g := New(setupTestDB(t))
		seedProduct(t, g, "Dashboard Template", "Templates", "49.00")
		seedProduct(t, g, "Icon Pack", "Graphics", "15.00")
		seedProduct(t, g, "Landing Template", "Templates", "29.00")

		templates, err := g.Products().List(ctx, ProductFilter{Category: "templates"})
		require.NoError(t, err)
		require.Len(t, templates, 2)

		icons, err := g.Products().List(ctx, ProductFilter{Search: "ICON"})
		require.NoError(t, err)
		require.Len(t, icons, 1)
		require.Equal(t, "Icon Pack", icons[0].Title)

		byPrice, err := g.Products().List(ctx, ProductFilter{SortBy: "price", Order: SortAsc})
		require.NoError(t, err)
		require.Len(t, byPrice, 3)
		require.Equal(t, "Icon Pack", byPrice[0].Title)
		require.Equal(t, "Dashboard Template", byPrice[2].Title)
	})

	t.Run("ListOutlivesCallerCancellation", func(t *testing.T) {
		g := New(setupTestDB(t))
		seedProduct(t, g, "UI Kit", "Templates", "49.00")

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		products, err := g.Products().List(cancelled, ProductFilter{})
		require.NoError(t, err)
		require.Len(t, products, 1)
	})

	t.Run("WritesAdvanceCatalogGeneration", func(t *testing.T) {
		g := New(setupTestDB(t))
		start := g.generation.Load()
		p := seedProduct(t, g, "UI Kit", "Templates", "49.00")
		title := "UI Kit Pro"
		require.NoError(t, g.Products().Update(ctx, p.ID, models.ProductUpdate{Title: &title}))
		require.NoError(t, g.Products().Delete(ctx, p.ID))
		require.Equal(t, start+3, g.generation.Load())
	})

	t.Run("ListRejectsUnknownSortField", func(t *testing.T) {
		g := New(setupTestDB(t))
		_, err := g.Products().List(ctx, ProductFilter{SortBy: "password"})
		require.True(t, IsReadError(err))
	})

	t.Run("UpdateOnlyTouchesGivenFields", func(t *testing.T) {
		g := New(setupTestDB(t))
		p := seedProduct(t, g, "UI Kit", "Templates", "49.00")

		price := decimal.RequireFromString("59.00")
		features := []string{"Figma file", "React components"}
		require.NoError(t, g.Products().Update(ctx, p.ID, models.ProductUpdate{Price: &price, Features: &features}))

		got, err := g.Products().Get(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, "UI Kit", got.Title)
		require.True(t, got.Price.Equal(price))
		require.Equal(t, models.StringList{"Figma file", "React components"}, got.Features)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		g := New(setupTestDB(t))
		title := "x"
		err := g.Products().Update(ctx, "nope", models.ProductUpdate{Title: &title})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteRemovesCartRows", func(t *testing.T) {
		g := New(setupTestDB(t))
		p := seedProduct(t, g, "UI Kit", "Templates", "49.00")
		require.NoError(t, g.CartItems().Insert(ctx, &models.CartItem{UserID: "u1", ProductID: p.ID, Quantity: 1}))

		require.NoError(t, g.Products().Delete(ctx, p.ID))

		items, err := g.CartItems().List(ctx, "u1")
		require.NoError(t, err)
		require.Empty(t, items)

		err = g.Products().Delete(ctx, p.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCartItemCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertUpdateList", func(t *testing.T) {
		g := New(setupTestDB(t))
		p := seedProduct(t, g, "UI Kit", "Templates", "49.00")

		item := &models.CartItem{UserID: "u1", ProductID: p.ID, Quantity: 1}
		require.NoError(t, g.CartItems().Insert(ctx, item))

		qty := 3
		require.NoError(t, g.CartItems().Update(ctx, item.ID, models.CartItemUpdate{Quantity: &qty}))

		items, err := g.CartItems().List(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, 3, items[0].Quantity)
		require.Equal(t, "UI Kit", items[0].Product.Title)
	})

	t.Run("DuplicateRowRejected", func(t *testing.T) {
		g := New(setupTestDB(t))
		p := seedProduct(t, g, "UI Kit", "Templates", "49.00")
		require.NoError(t, g.CartItems().Insert(ctx, &models.CartItem{UserID: "u1", ProductID: p.ID, Quantity: 1}))

		err := g.CartItems().Insert(ctx, &models.CartItem{UserID: "u1", ProductID: p.ID, Quantity: 1})
		require.True(t, IsWriteError(err))
	})

	t.Run("ZeroQuantityRejected", func(t *testing.T) {
		g := New(setupTestDB(t))
		p := seedProduct(t, g, "UI Kit", "Templates", "49.00")

		err := g.CartItems().Insert(ctx, &models.CartItem{UserID: "u1", ProductID: p.ID})
		require.ErrorIs(t, err, models.ErrQuantityInvalid)

		item := &models.CartItem{UserID: "u1", ProductID: p.ID, Quantity: 1}
		require.NoError(t, g.CartItems().Insert(ctx, item))
		zero := 0
		err = g.CartItems().Update(ctx, item.ID, models.CartItemUpdate{Quantity: &zero})
		require.ErrorIs(t, err, models.ErrQuantityInvalid)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		g := New(setupTestDB(t))
		p := seedProduct(t, g, "UI Kit", "Templates", "49.00")
		require.NoError(t, g.CartItems().Insert(ctx, &models.CartItem{UserID: "u1", ProductID: p.ID, Quantity: 1}))

		require.NoError(t, g.CartItems().Delete(ctx, "u1", p.ID))
		require.NoError(t, g.CartItems().Delete(ctx, "u1", p.ID))
	})

	t.Run("DeleteAllIsScopedToUser", func(t *testing.T) {
		g := New(setupTestDB(t))
		p := seedProduct(t, g, "UI Kit", "Templates", "49.00")
		require.NoError(t, g.CartItems().Insert(ctx, &models.CartItem{UserID: "u1", ProductID: p.ID, Quantity: 1}))
		require.NoError(t, g.CartItems().Insert(ctx, &models.CartItem{UserID: "u2", ProductID: p.ID, Quantity: 2}))

		require.NoError(t, g.CartItems().DeleteAll(ctx, "u1"))

		mine, err := g.CartItems().List(ctx, "u1")
		require.NoError(t, err)
		require.Empty(t, mine)
		theirs, err := g.CartItems().List(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, theirs, 1)
	})
}

func TestOrderCollections(t *testing.T) {
	ctx := context.Background()
	g := New(setupTestDB(t))
	p := seedProduct(t, g, "UI Kit", "Templates", "49.00")

	order := &models.Order{
		UserID:   "u1",
		Subtotal: decimal.RequireFromString("49.00"),
		Tax:      decimal.RequireFromString("3.92"),
		Total:    decimal.RequireFromString("52.92"),
		Status:   models.OrderStatusCompleted,
	}
	require.NoError(t, g.Orders().Insert(ctx, order))
	require.NotEmpty(t, order.ID)

	require.NoError(t, g.OrderItems().Insert(ctx, []models.OrderItem{
		{OrderID: order.ID, ProductID: p.ID, Quantity: 1, Price: p.Price},
	}))

	t.Run("GetPreloadsItems", func(t *testing.T) {
		got, err := g.Orders().Get(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		require.True(t, got.Total.Equal(decimal.RequireFromString("52.92")))
	})

	t.Run("ListByStatus", func(t *testing.T) {
		done, err := g.Orders().List(ctx, OrderFilter{Status: models.OrderStatusCompleted})
		require.NoError(t, err)
		require.Len(t, done, 1)

		pending, err := g.Orders().List(ctx, OrderFilter{Status: models.OrderStatusPending})
		require.NoError(t, err)
		require.Empty(t, pending)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		refunded := models.OrderStatusRefunded
		require.NoError(t, g.Orders().Update(ctx, order.ID, models.OrderUpdate{Status: &refunded}))

		got, err := g.Orders().Get(ctx, order.ID)
		require.NoError(t, err)
		require.Equal(t, models.OrderStatusRefunded, got.Status)
	})

	t.Run("PurchasesSkipDuplicates", func(t *testing.T) {
		records := []models.PurchaseRecord{{UserID: "u1", ProductID: p.ID, OrderID: order.ID}}
		require.NoError(t, g.Purchases().Insert(ctx, records))
		require.NoError(t, g.Purchases().Insert(ctx, []models.PurchaseRecord{{UserID: "u1", ProductID: p.ID, OrderID: order.ID}}))

		got, err := g.Purchases().List(ctx, PurchaseFilter{UserID: "u1"})
		require.NoError(t, err)
		require.Len(t, got, 1)

		require.NoError(t, g.Purchases().DeleteByOrder(ctx, order.ID))
		got, err = g.Purchases().List(ctx, PurchaseFilter{OrderID: order.ID})
		require.NoError(t, err)
		require.Empty(t, got)
	})
}

func TestProfileCollection(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	g := New(db)
	require.NoError(t, db.Create(&models.Profile{ID: "u1", Email: "ana@example.com", Name: "Ana", Role: models.RoleCustomer}).Error)

	name := "Ana Maria"
	require.NoError(t, g.Profiles().Update(ctx, "u1", models.ProfileUpdate{Name: &name}))

	got, err := g.Profiles().Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Ana Maria", got.Name)
	require.Equal(t, models.RoleCustomer, got.Role)

	all, err := g.Profiles().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	err = g.Profiles().Update(ctx, "ghost", models.ProfileUpdate{Name: &name})
	require.ErrorIs(t, err, ErrNotFound)
}

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/MrPsycho237/digimarketstore/models"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DB implements Gateway on top of a gorm connection.
type DB struct {
	db      *gorm.DB
	cache   *CatalogCache
	sfGroup singleflight.Group // collapses concurrent catalog misses
	logger  *slog.Logger

	// bumped on every catalog write; listings read under an older value are not cached
	generation atomic.Uint64
}

type Option func(*DB)

// WithCache puts a cache-aside layer in front of product listings.
func WithCache(c *CatalogCache) Option {
	return func(g *DB) { g.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *DB) { g.logger = l }
}

func New(db *gorm.DB, opts ...Option) *DB {
	g := &DB{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Migrate creates or updates every table the gateway owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Credential{},
		&models.AuthSession{},
		&models.Profile{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.PurchaseRecord{},
	)
}

func (g *DB) Products() ProductCollection     { return productCollection{g} }
func (g *DB) CartItems() CartItemCollection   { return cartItemCollection{g} }
func (g *DB) Orders() OrderCollection         { return orderCollection{g} }
func (g *DB) OrderItems() OrderItemCollection { return orderItemCollection{g} }
func (g *DB) Purchases() PurchaseCollection   { return purchaseCollection{g} }
func (g *DB) Profiles() ProfileCollection     { return profileCollection{g} }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ─────────── Products ───────────

type productCollection struct{ g *DB }

var productSortColumns = map[string]bool{
	"created_at": true,
	"price":      true,
	"title":      true,
	"rating":     true,
	"reviews":    true,
}

func productListKey(f ProductFilter) string {
	return fmt.Sprintf("products:%s:%s:%s:%s", strings.ToLower(f.Category), strings.ToLower(f.Search), f.SortBy, f.Order)
}

func (c productCollection) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	if filter.SortBy != "" && !productSortColumns[filter.SortBy] {
		return nil, readErr("products", "list", fmt.Errorf("unsupported sort field %q", filter.SortBy))
	}

	key := productListKey(filter)
	if c.g.cache != nil {
		var cached []models.Product
		found, err := c.g.cache.Get(ctx, key, &cached)
		if err != nil {
			c.g.logger.Warn("catalog cache read failed", "key", key, "error", err)
		}
		if found {
			return cached, nil
		}
	}

	gen := c.g.generation.Load()
	// one caller's cancellation must not fail the other waiters
	queryCtx := context.WithoutCancel(ctx)
	val, err, _ := c.g.sfGroup.Do(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		return c.query(queryCtx, filter)
	})
	if err != nil {
		return nil, readErr("products", "list", err)
	}
	products := val.([]models.Product)

	c.storeListing(ctx, key, gen, products)
	// singleflight hands the same slice to every waiter
	return append([]models.Product(nil), products...), nil
}

// storeListing caches products read under gen, unless a write has happened since.
func (c productCollection) storeListing(ctx context.Context, key string, gen uint64, products []models.Product) bool {
	if c.g.cache == nil {
		return false
	}
	if c.g.generation.Load() != gen {
		c.g.logger.Debug("catalog changed during read, skipping cache write", "key", key)
		return false
	}
	if err := c.g.cache.Set(ctx, key, products); err != nil {
		c.g.logger.Warn("catalog cache write failed", "key", key, "error", err)
		return false
	}
	// a write may have invalidated between the check and the set
	if c.g.generation.Load() != gen {
		if err := c.g.cache.Delete(ctx, key); err != nil {
			c.g.logger.Warn("catalog cache delete failed", "key", key, "error", err)
		}
		return false
	}
	return true
}

func (c productCollection) query(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := c.g.db.WithContext(ctx).Model(&models.Product{})

	if filter.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(filter.Category))
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	desc := filter.Order != SortAsc
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: desc})

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (c productCollection) Get(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.g.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, readErr("products", "get", notFound(err))
	}
	return &product, nil
}

func (c productCollection) Insert(ctx context.Context, product *models.Product) error {
	if err := product.Validate(); err != nil {
		return writeErr("products", "insert", err)
	}
	if err := c.g.db.WithContext(ctx).Create(product).Error; err != nil {
		return writeErr("products", "insert", err)
	}
	c.invalidate(ctx)
	return nil
}

func (c productCollection) Update(ctx context.Context, id string, update models.ProductUpdate) error {
	cols := update.Columns()
	if len(cols) == 0 {
		if _, err := c.Get(ctx, id); err != nil {
			return writeErr("products", "update", errors.Unwrap(err))
		}
		return nil
	}

	result := c.g.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return writeErr("products", "update", result.Error)
	}
	if result.RowsAffected == 0 {
		return writeErr("products", "update", ErrNotFound)
	}
	c.invalidate(ctx)
	return nil
}

func (c productCollection) Delete(ctx context.Context, id string) error {
	err := c.g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Cart rows must not outlive their product
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Product{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return writeErr("products", "delete", err)
	}
	c.invalidate(ctx)
	return nil
}

func (c productCollection) invalidate(ctx context.Context) {
	c.g.generation.Add(1)
	if c.g.cache == nil {
		return
	}
	if err := c.g.cache.InvalidateAll(ctx); err != nil {
		c.g.logger.Warn("catalog cache invalidation failed", "error", err)
	}
}

// ─────────── Cart items ───────────

type cartItemCollection struct{ g *DB }

func (c cartItemCollection) List(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := c.g.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, readErr("cart_items", "list", err)
	}

	out := items[:0]
	for _, item := range items {
		if item.Product.ID == "" {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (c cartItemCollection) Insert(ctx context.Context, item *models.CartItem) error {
	if err := c.g.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error; err != nil {
		return writeErr("cart_items", "insert", err)
	}
	return nil
}

func (c cartItemCollection) Update(ctx context.Context, id string, update models.CartItemUpdate) error {
	if update.Quantity != nil && *update.Quantity < 1 {
		return writeErr("cart_items", "update", models.ErrQuantityInvalid)
	}
	cols := update.Columns()
	if len(cols) == 0 {
		return nil
	}
	result := c.g.db.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return writeErr("cart_items", "update", result.Error)
	}
	if result.RowsAffected == 0 {
		return writeErr("cart_items", "update", ErrNotFound)
	}
	return nil
}

func (c cartItemCollection) Delete(ctx context.Context, userID, productID string) error {
	if err := c.g.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error; err != nil {
		return writeErr("cart_items", "delete", err)
	}
	return nil
}

func (c cartItemCollection) DeleteAll(ctx context.Context, userID string) error {
	if err := c.g.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return writeErr("cart_items", "delete_all", err)
	}
	return nil
}

// ─────────── Orders ───────────

type orderCollection struct{ g *DB }

func (c orderCollection) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := c.g.db.WithContext(ctx).Preload("Items")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, readErr("orders", "list", err)
	}
	return orders, nil
}

func (c orderCollection) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := c.g.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, readErr("orders", "get", notFound(err))
	}
	return &order, nil
}

func (c orderCollection) Insert(ctx context.Context, order *models.Order) error {
	if err := c.g.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return writeErr("orders", "insert", err)
	}
	return nil
}

func (c orderCollection) Update(ctx context.Context, id string, update models.OrderUpdate) error {
	cols := update.Columns()
	if len(cols) == 0 {
		return nil
	}
	result := c.g.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return writeErr("orders", "update", result.Error)
	}
	if result.RowsAffected == 0 {
		return writeErr("orders", "update", ErrNotFound)
	}
	return nil
}

// ─────────── Order items ───────────

type orderItemCollection struct{ g *DB }

func (c orderItemCollection) List(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := c.g.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, readErr("order_items", "list", err)
	}
	return items, nil
}

func (c orderItemCollection) Insert(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return writeErr("order_items", "insert", models.ErrQuantityInvalid)
		}
	}
	if err := c.g.db.WithContext(ctx).Create(&items).Error; err != nil {
		return writeErr("order_items", "insert", err)
	}
	return nil
}

// ─────────── Purchases ───────────

type purchaseCollection struct{ g *DB }

func (c purchaseCollection) List(ctx context.Context, filter PurchaseFilter) ([]models.PurchaseRecord, error) {
	query := c.g.db.WithContext(ctx)
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}

	var records []models.PurchaseRecord
	if err := query.Order("purchased_at ASC").Find(&records).Error; err != nil {
		return nil, readErr("purchased_products", "list", err)
	}
	return records, nil
}

func (c purchaseCollection) Insert(ctx context.Context, records []models.PurchaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records).Error; err != nil {
		return writeErr("purchased_products", "insert", err)
	}
	return nil
}

func (c purchaseCollection) DeleteByOrder(ctx context.Context, orderID string) error {
	if err := c.g.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.PurchaseRecord{}).Error; err != nil {
		return writeErr("purchased_products", "delete", err)
	}
	return nil
}

// ─────────── Profiles ───────────

type profileCollection struct{ g *DB }

func (c profileCollection) Get(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.g.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, readErr("profiles", "get", notFound(err))
	}
	return &profile, nil
}

func (c profileCollection) List(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := c.g.db.WithContext(ctx).Order("created_at DESC").Find(&profiles).Error; err != nil {
		return nil, readErr("profiles", "list", err)
	}
	return profiles, nil
}

func (c profileCollection) Update(ctx context.Context, id string, update models.ProfileUpdate) error {
	cols := update.Columns()
	if len(cols) == 0 {
		return nil
	}
	result := c.g.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return writeErr("profiles", "update", result.Error)
	}
	if result.RowsAffected == 0 {
		return writeErr("profiles", "update", ErrNotFound)
	}
	return nil
}

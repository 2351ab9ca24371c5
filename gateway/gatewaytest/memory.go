// Package gatewaytest provides an in-memory gateway.Gateway and gateway.Auth for
// tests, with per-operation failure injection.
package gatewaytest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/google/uuid"
)

// ErrInjected is the default error returned by a failing operation.
var ErrInjected = errors.New("injected failure")

// Memory is a process-local gateway. The zero value is not usable; call New.
type Memory struct {
	mu         sync.Mutex
	products   map[string]models.Product
	cart       map[string]models.CartItem
	orders     map[string]models.Order
	orderItems []models.OrderItem
	purchases  []models.PurchaseRecord
	profiles   map[string]models.Profile
	users      map[string]memoryUser
	revoked    map[string]bool
	issued     []gateway.Session
	failures   map[string]error
	calls      map[string]int
	clock      time.Time
}

type memoryUser struct {
	id       string
	password string
}

func New() *Memory {
	return &Memory{
		products: make(map[string]models.Product),
		cart:     make(map[string]models.CartItem),
		orders:   make(map[string]models.Order),
		profiles: make(map[string]models.Profile),
		users:    make(map[string]memoryUser),
		revoked:  make(map[string]bool),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var _ gateway.Gateway = (*Memory)(nil)

// Fail makes every later call to op (e.g. "order_items.insert") return err.
// A nil err uses ErrInjected.
func (m *Memory) Fail(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// Recover clears an injected failure.
func (m *Memory) Recover(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, op)
}

// Calls reports how many times op was attempted.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// enter records the call and returns the injected failure, if any. m.mu must be held.
func (m *Memory) enter(op string) error {
	m.calls[op]++
	return m.failures[op]
}

// tick returns strictly increasing timestamps so ordering by time is stable.
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func split(op string) (string, string) {
	collection, action, _ := strings.Cut(op, ".")
	return collection, action
}

func readFail(op string, err error) error {
	c, a := split(op)
	return &gateway.ReadError{Collection: c, Op: a, Err: err}
}

func writeFail(op string, err error) error {
	c, a := split(op)
	return &gateway.WriteError{Collection: c, Op: a, Err: err}
}

// SeedProduct stores p directly, bypassing failure injection.
func (m *Memory) SeedProduct(p models.Product) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Features == nil {
		p.Features = models.StringList{}
	}
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = p
	return p
}

// SeedOrder stores an order with its items and no purchase records.
func (m *Memory) SeedOrder(o models.Order) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = m.tick()
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
		m.orderItems = append(m.orderItems, o.Items[i])
	}
	stored := o
	stored.Items = nil
	m.orders[o.ID] = stored
	return o
}

// PurchaseRecords returns a copy of every stored purchase record.
func (m *Memory) PurchaseRecords() []models.PurchaseRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PurchaseRecord(nil), m.purchases...)
}

// CartRows returns a copy of the stored cart rows of userID.
func (m *Memory) CartRows(userID string) []models.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CartItem
	for _, item := range m.cart {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out
}

func (m *Memory) Products() gateway.ProductCollection     { return products{m} }
func (m *Memory) CartItems() gateway.CartItemCollection   { return cartItems{m} }
func (m *Memory) Orders() gateway.OrderCollection         { return orders{m} }
func (m *Memory) OrderItems() gateway.OrderItemCollection { return orderItems{m} }
func (m *Memory) Purchases() gateway.PurchaseCollection   { return purchases{m} }
func (m *Memory) Profiles() gateway.ProfileCollection     { return profiles{m} }

type products struct{ m *Memory }

func (c products) List(_ context.Context, f gateway.ProductFilter) ([]models.Product, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("products.list"); err != nil {
		return nil, readFail("products.list", err)
	}

	search := strings.ToLower(f.Search)
	var out []models.Product
	for _, p := range c.m.products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Order == gateway.SortAsc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (c products) Get(_ context.Context, id string) (*models.Product, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("products.get"); err != nil {
		return nil, readFail("products.get", err)
	}
	p, ok := c.m.products[id]
	if !ok {
		return nil, readFail("products.get", gateway.ErrNotFound)
	}
	return &p, nil
}

func (c products) Insert(_ context.Context, p *models.Product) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("products.insert"); err != nil {
		return writeFail("products.insert", err)
	}
	if err := p.Validate(); err != nil {
		return writeFail("products.insert", err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Features == nil {
		p.Features = models.StringList{}
	}
	p.CreatedAt = c.m.tick()
	p.UpdatedAt = p.CreatedAt
	c.m.products[p.ID] = *p
	return nil
}

func (c products) Update(_ context.Context, id string, u models.ProductUpdate) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("products.update"); err != nil {
		return writeFail("products.update", err)
	}
	p, ok := c.m.products[id]
	if !ok {
		return writeFail("products.update", gateway.ErrNotFound)
	}
	u.Apply(&p)
	if err := p.Validate(); err != nil {
		return writeFail("products.update", err)
	}
	p.UpdatedAt = c.m.tick()
	c.m.products[id] = p
	return nil
}

func (c products) Delete(_ context.Context, id string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("products.delete"); err != nil {
		return writeFail("products.delete", err)
	}
	if _, ok := c.m.products[id]; !ok {
		return writeFail("products.delete", gateway.ErrNotFound)
	}
	delete(c.m.products, id)
	for key, item := range c.m.cart {
		if item.ProductID == id {
			delete(c.m.cart, key)
		}
	}
	return nil
}

type cartItems struct{ m *Memory }

func (c cartItems) List(_ context.Context, userID string) ([]models.CartItem, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("cart_items.list"); err != nil {
		return nil, readFail("cart_items.list", err)
	}
	var out []models.CartItem
	for _, item := range c.m.cart {
		if item.UserID != userID {
			continue
		}
		p, ok := c.m.products[item.ProductID]
		if !ok {
			continue
		}
		item.Product = p
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c cartItems) Insert(_ context.Context, item *models.CartItem) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("cart_items.insert"); err != nil {
		return writeFail("cart_items.insert", err)
	}
	if item.Quantity < 1 {
		return writeFail("cart_items.insert", models.ErrQuantityInvalid)
	}
	for _, existing := range c.m.cart {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			return writeFail("cart_items.insert", errors.New("duplicate cart row"))
		}
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = c.m.tick()
	item.UpdatedAt = item.CreatedAt
	stored := *item
	stored.Product = models.Product{}
	c.m.cart[item.ID] = stored
	return nil
}

func (c cartItems) Update(_ context.Context, id string, u models.CartItemUpdate) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("cart_items.update"); err != nil {
		return writeFail("cart_items.update", err)
	}
	item, ok := c.m.cart[id]
	if !ok {
		return writeFail("cart_items.update", gateway.ErrNotFound)
	}
	if u.Quantity != nil {
		if *u.Quantity < 1 {
			return writeFail("cart_items.update", models.ErrQuantityInvalid)
		}
		item.Quantity = *u.Quantity
	}
	item.UpdatedAt = c.m.tick()
	c.m.cart[id] = item
	return nil
}

func (c cartItems) Delete(_ context.Context, userID, productID string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("cart_items.delete"); err != nil {
		return writeFail("cart_items.delete", err)
	}
	for key, item := range c.m.cart {
		if item.UserID == userID && item.ProductID == productID {
			delete(c.m.cart, key)
		}
	}
	return nil
}

func (c cartItems) DeleteAll(_ context.Context, userID string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("cart_items.delete_all"); err != nil {
		return writeFail("cart_items.delete_all", err)
	}
	for key, item := range c.m.cart {
		if item.UserID == userID {
			delete(c.m.cart, key)
		}
	}
	return nil
}

type orders struct{ m *Memory }

// withItems must be called with m.mu held.
func (m *Memory) withItems(o models.Order) models.Order {
	o.Items = nil
	for _, item := range m.orderItems {
		if item.OrderID == o.ID {
			o.Items = append(o.Items, item)
		}
	}
	return o
}

func (c orders) List(_ context.Context, f gateway.OrderFilter) ([]models.Order, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("orders.list"); err != nil {
		return nil, readFail("orders.list", err)
	}
	var out []models.Order
	for _, o := range c.m.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, c.m.withItems(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c orders) Get(_ context.Context, id string) (*models.Order, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("orders.get"); err != nil {
		return nil, readFail("orders.get", err)
	}
	o, ok := c.m.orders[id]
	if !ok {
		return nil, readFail("orders.get", gateway.ErrNotFound)
	}
	o = c.m.withItems(o)
	return &o, nil
}

func (c orders) Insert(_ context.Context, o *models.Order) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("orders.insert"); err != nil {
		return writeFail("orders.insert", err)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	o.CreatedAt = c.m.tick()
	stored := *o
	stored.Items = nil
	c.m.orders[o.ID] = stored
	return nil
}

func (c orders) Update(_ context.Context, id string, u models.OrderUpdate) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("orders.update"); err != nil {
		return writeFail("orders.update", err)
	}
	o, ok := c.m.orders[id]
	if !ok {
		return writeFail("orders.update", gateway.ErrNotFound)
	}
	if u.Status != nil {
		o.Status = *u.Status
	}
	c.m.orders[id] = o
	return nil
}

type orderItems struct{ m *Memory }

func (c orderItems) List(_ context.Context, orderID string) ([]models.OrderItem, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("order_items.list"); err != nil {
		return nil, readFail("order_items.list", err)
	}
	var out []models.OrderItem
	for _, item := range c.m.orderItems {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c orderItems) Insert(_ context.Context, items []models.OrderItem) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("order_items.insert"); err != nil {
		return writeFail("order_items.insert", err)
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return writeFail("order_items.insert", models.ErrQuantityInvalid)
		}
	}
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.CreatedAt = c.m.tick()
		c.m.orderItems = append(c.m.orderItems, item)
	}
	return nil
}

type purchases struct{ m *Memory }

func (c purchases) List(_ context.Context, f gateway.PurchaseFilter) ([]models.PurchaseRecord, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("purchased_products.list"); err != nil {
		return nil, readFail("purchased_products.list", err)
	}
	var out []models.PurchaseRecord
	for _, r := range c.m.purchases {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.OrderID != "" && r.OrderID != f.OrderID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (c purchases) Insert(_ context.Context, records []models.PurchaseRecord) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("purchased_products.insert"); err != nil {
		return writeFail("purchased_products.insert", err)
	}
next:
	for _, r := range records {
		for _, existing := range c.m.purchases {
			if existing.UserID == r.UserID && existing.ProductID == r.ProductID && existing.OrderID == r.OrderID {
				continue next
			}
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.PurchasedAt = c.m.tick()
		c.m.purchases = append(c.m.purchases, r)
	}
	return nil
}

func (c purchases) DeleteByOrder(_ context.Context, orderID string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("purchased_products.delete"); err != nil {
		return writeFail("purchased_products.delete", err)
	}
	kept := c.m.purchases[:0]
	for _, r := range c.m.purchases {
		if r.OrderID != orderID {
			kept = append(kept, r)
		}
	}
	c.m.purchases = kept
	return nil
}

type profiles struct{ m *Memory }

func (c profiles) Get(_ context.Context, id string) (*models.Profile, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("profiles.get"); err != nil {
		return nil, readFail("profiles.get", err)
	}
	p, ok := c.m.profiles[id]
	if !ok {
		return nil, readFail("profiles.get", gateway.ErrNotFound)
	}
	return &p, nil
}

func (c profiles) List(_ context.Context) ([]models.Profile, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("profiles.list"); err != nil {
		return nil, readFail("profiles.list", err)
	}
	out := make([]models.Profile, 0, len(c.m.profiles))
	for _, p := range c.m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c profiles) Update(_ context.Context, id string, u models.ProfileUpdate) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.m.enter("profiles.update"); err != nil {
		return writeFail("profiles.update", err)
	}
	p, ok := c.m.profiles[id]
	if !ok {
		return writeFail("profiles.update", gateway.ErrNotFound)
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.PhoneNumber != nil {
		phone := *u.PhoneNumber
		p.PhoneNumber = &phone
	}
	p.UpdatedAt = c.m.tick()
	c.m.profiles[id] = p
	return nil
}

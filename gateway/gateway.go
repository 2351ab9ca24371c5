// Package gateway is the storefront's boundary to its backend: typed CRUD over the
// record collections and an authentication subsystem. Session and store code depend
// only on the interfaces declared here.
package gateway

import (
	"context"
	"time"

	"github.com/MrPsycho237/digimarketstore/models"
)

// Gateway groups the record collections.
type Gateway interface {
	Products() ProductCollection
	CartItems() CartItemCollection
	Orders() OrderCollection
	OrderItems() OrderItemCollection
	Purchases() PurchaseCollection
	Profiles() ProfileCollection
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ProductFilter narrows and orders a product listing. Zero value lists everything,
// newest first.
type ProductFilter struct {
	Category string
	Search   string
	SortBy   string
	Order    SortOrder
}

type ProductCollection interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id string, update models.ProductUpdate) error
	Delete(ctx context.Context, id string) error
}

type CartItemCollection interface {
	// List returns the user's cart rows with their products preloaded, oldest first.
	List(ctx context.Context, userID string) ([]models.CartItem, error)
	Insert(ctx context.Context, item *models.CartItem) error
	Update(ctx context.Context, id string, update models.CartItemUpdate) error
	// Delete removes the (user, product) row. Deleting a missing row is not an error.
	Delete(ctx context.Context, userID, productID string) error
	DeleteAll(ctx context.Context, userID string) error
}

type OrderFilter struct {
	UserID string
	Status models.OrderStatus
}

type OrderCollection interface {
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	// Insert stores the order and fills in its generated ID.
	Insert(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, id string, update models.OrderUpdate) error
}

type OrderItemCollection interface {
	List(ctx context.Context, orderID string) ([]models.OrderItem, error)
	Insert(ctx context.Context, items []models.OrderItem) error
}

type PurchaseFilter struct {
	UserID  string
	OrderID string
}

type PurchaseCollection interface {
	List(ctx context.Context, filter PurchaseFilter) ([]models.PurchaseRecord, error)
	// Insert skips records that already exist for the same (user, product, order).
	Insert(ctx context.Context, records []models.PurchaseRecord) error
	DeleteByOrder(ctx context.Context, orderID string) error
}

type ProfileCollection interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Update(ctx context.Context, id string, update models.ProfileUpdate) error
}

// Session is an authenticated identity as issued by the auth subsystem.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	UserID      string      `json:"user_id"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
}

type SessionChangeKind int

const (
	SessionPresent SessionChangeKind = iota + 1
	SessionAbsent
)

func (k SessionChangeKind) String() string {
	switch k {
	case SessionPresent:
		return "session_present"
	case SessionAbsent:
		return "session_absent"
	default:
		return "unknown"
	}
}

// SessionChange is pushed to OnSessionChange subscribers. Session is nil when absent.
type SessionChange struct {
	Kind    SessionChangeKind
	Session *Session
}

type SignUpParams struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

// Auth is one client's view of the auth subsystem. It holds at most one current
// session and notifies subscribers whenever that changes.
type Auth interface {
	SignUp(ctx context.Context, params SignUpParams) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// GetSession returns the current session, or ErrNoSession.
	GetSession(ctx context.Context) (*Session, error)
	// RestoreSession adopts a previously issued access token.
	RestoreSession(ctx context.Context, accessToken string) (*Session, error)
	OnSessionChange(fn func(SessionChange)) (unsubscribe func())
}

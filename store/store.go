// Package store holds one client's in-memory view of the catalog and cart and keeps
// it consistent with the gateway. Every mutation writes remotely first and only
// touches local state after the remote write succeeded.
package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/MrPsycho237/digimarketstore/session"
	"github.com/shopspring/decimal"
)

var (
	ErrNotSignedIn        = errors.New("sign in to continue")
	ErrForbidden          = errors.New("admin access required")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// DefaultTaxRate is applied to every checkout.
var DefaultTaxRate = decimal.RequireFromString("0.08")

type CartState int

const (
	CartIdle CartState = iota
	CartLoading
	CartReady
)

func (s CartState) String() string {
	switch s {
	case CartIdle:
		return "idle"
	case CartLoading:
		return "loading"
	case CartReady:
		return "ready"
	default:
		return "unknown"
	}
}

// OrderObserver is told about every order placed through Checkout.
type OrderObserver func(models.Order)

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithTaxRate(rate decimal.Decimal) Option {
	return func(s *Store) { s.taxRate = rate }
}

func WithOrderObserver(o OrderObserver) Option {
	return func(s *Store) { s.observer = o }
}

// PurchasesChanged is told when an admin action granted or revoked a user's purchases.
type PurchasesChanged func(ctx context.Context, userID string)

// WithPurchasesChanged registers the hook run after order status changes touch
// purchase records.
func WithPurchasesChanged(fn PurchasesChanged) Option {
	return func(s *Store) { s.purchasesChanged = fn }
}

// WithLoadTimeout bounds cart loads triggered by sign-in events.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Store) { s.loadTimeout = d }
}

type Store struct {
	gw          gateway.Gateway
	session     *session.Manager
	logger      *slog.Logger
	taxRate     decimal.Decimal
	observer    OrderObserver
	loadTimeout time.Duration
	unsubscribe func()

	purchasesChanged PurchasesChanged

	// writeMu serializes remote mutations so local state follows remote order.
	writeMu     sync.Mutex
	checkingOut atomic.Bool

	mu        sync.RWMutex
	products  []models.Product
	cart      []models.CartLine
	cartState CartState
}

// New builds a Store for the client behind mgr and subscribes it to mgr's events.
func New(gw gateway.Gateway, mgr *session.Manager, opts ...Option) *Store {
	s := &Store{
		gw:          gw,
		session:     mgr,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		taxRate:     DefaultTaxRate,
		loadTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubscribe = mgr.Subscribe(s.onSessionEvent)
	if user := mgr.User(); user != nil {
		s.onSessionEvent(session.Event{Kind: session.SignedIn, User: user})
	}
	return s
}

// Close detaches the store from its session manager.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Store) Session() *session.Manager {
	return s.session
}

// User returns the current user mirrored by the session manager, or nil.
func (s *Store) User() *models.User {
	return s.session.User()
}

func (s *Store) onSessionEvent(e session.Event) {
	switch e.Kind {
	case session.SignedIn:
		ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
		defer cancel()
		if err := s.LoadCart(ctx); err != nil {
			s.logger.Warn("cart load failed", "user_id", e.User.ID, "error", err)
		}
	case session.SignedOut:
		s.mu.Lock()
		s.cart = nil
		s.cartState = CartIdle
		s.mu.Unlock()
	}
}

func (s *Store) requireUser() (*models.User, error) {
	user := s.session.User()
	if user == nil {
		return nil, ErrNotSignedIn
	}
	return user, nil
}

func (s *Store) requireAdmin() (*models.User, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	return user, nil
}

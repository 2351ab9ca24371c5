// Package session tracks the signed-in user of one client and mirrors the profile
// locally. Listeners registered with Subscribe are told when a user signs in or out.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
)

// ErrNotSignedIn is returned by operations that need a current user.
var ErrNotSignedIn = errors.New("not signed in")

type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
)

// Event carries a copy of the user for SignedIn and nil for SignedOut.
type Event struct {
	Kind EventKind
	User *models.User
}

type Listener func(Event)

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithLoadTimeout bounds profile loads triggered by session changes.
func WithLoadTimeout(d time.Duration) Option {
	return func(m *Manager) { m.loadTimeout = d }
}

type Manager struct {
	gw          gateway.Gateway
	auth        gateway.Auth
	logger      *slog.Logger
	loadTimeout time.Duration
	unsubscribe func()

	mu        sync.Mutex
	state     State
	user      *models.User
	session   *gateway.Session
	listeners map[int]Listener
	nextID    int
}

// NewManager subscribes to auth's session changes. Call Close to detach.
func NewManager(gw gateway.Gateway, auth gateway.Auth, opts ...Option) *Manager {
	m := &Manager{
		gw:          gw,
		auth:        auth,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		loadTimeout: 10 * time.Second,
		listeners:   make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unsubscribe = auth.OnSessionChange(m.onSessionChange)
	return m
}

func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Subscribe registers l for sign-in and sign-out events, delivered synchronously
// in registration order.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.user)
}

// Session returns a copy of the current session, or nil.
func (m *Manager) Session() *gateway.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// SignIn checks the credentials remotely. The profile is loaded before SignIn
// returns; auth errors are returned unchanged.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	m.begin()
	if _, err := m.auth.SignInWithPassword(ctx, email, password); err != nil {
		m.fail()
		return nil, err
	}
	return m.signedInUser()
}

// SignUp creates the credential and profile. An empty role means customer.
func (m *Manager) SignUp(ctx context.Context, email, password, name string, role models.Role) (*models.User, error) {
	if role == "" {
		role = models.RoleCustomer
	}
	m.begin()
	params := gateway.SignUpParams{Email: email, Password: password, Name: name, Role: role}
	if _, err := m.auth.SignUp(ctx, params); err != nil {
		m.fail()
		return nil, err
	}
	return m.signedInUser()
}

// Restore adopts a token issued earlier, e.g. on the first request of a new client.
func (m *Manager) Restore(ctx context.Context, accessToken string) (*models.User, error) {
	m.begin()
	if _, err := m.auth.RestoreSession(ctx, accessToken); err != nil {
		m.fail()
		return nil, err
	}
	return m.signedInUser()
}

// SignOut always clears local state, even when the remote call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	err := m.auth.SignOut(ctx)
	if err != nil {
		m.logger.Warn("remote sign-out failed, clearing local session anyway", "error", err)
	}
	m.clear()
	return err
}

// LoadProfile fetches the profile and purchase records for sess and publishes
// SignedIn. A failed profile read degrades to a user built from the session.
func (m *Manager) LoadProfile(ctx context.Context, sess *gateway.Session) *models.User {
	user := &models.User{
		ID:                sess.UserID,
		Name:              strings.SplitN(sess.Email, "@", 2)[0],
		Email:             sess.Email,
		Role:              sess.Role,
		PurchasedProducts: []string{},
	}

	profile, err := m.gw.Profiles().Get(ctx, sess.UserID)
	if err != nil {
		m.logger.Warn("profile load failed, using session identity", "user_id", sess.UserID, "error", err)
	} else {
		user.Name = profile.Name
		user.Email = profile.Email
		user.Role = profile.Role
	}

	records, err := m.gw.Purchases().List(ctx, gateway.PurchaseFilter{UserID: sess.UserID})
	if err != nil {
		m.logger.Warn("purchase records load failed", "user_id", sess.UserID, "error", err)
	}
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if !seen[r.ProductID] {
			seen[r.ProductID] = true
			user.PurchasedProducts = append(user.PurchasedProducts, r.ProductID)
		}
	}

	s := *sess
	m.mu.Lock()
	m.state = StateAuthenticated
	m.session = &s
	m.user = user
	event := Event{Kind: SignedIn, User: copyUser(user)}
	listeners := m.snapshot()
	m.mu.Unlock()

	m.logger.Info("user signed in", "user_id", user.ID, "role", user.Role)
	publish(listeners, event)
	return copyUser(user)
}

// UpdateProfile writes the change remotely, then patches the local user.
func (m *Manager) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	user := m.user
	m.mu.Unlock()
	if user == nil {
		return nil, ErrNotSignedIn
	}

	if err := m.gw.Profiles().Update(ctx, user.ID, update); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil || m.user.ID != user.ID {
		return nil, ErrNotSignedIn
	}
	if update.Name != nil {
		m.user.Name = *update.Name
	}
	return copyUser(m.user), nil
}

// AddPurchases appends product ids to the local purchased list, skipping known ones.
func (m *Manager) AddPurchases(userID string, productIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil || m.user.ID != userID {
		return
	}
	for _, id := range productIDs {
		if !m.user.HasPurchased(id) {
			m.user.PurchasedProducts = append(m.user.PurchasedProducts, id)
		}
	}
}

// SetPurchases replaces the local purchased list, e.g. after an order was refunded.
func (m *Manager) SetPurchases(userID string, productIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil || m.user.ID != userID {
		return
	}
	purchased := make([]string, 0, len(productIDs))
	seen := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		if !seen[id] {
			seen[id] = true
			purchased = append(purchased, id)
		}
	}
	m.user.PurchasedProducts = purchased
}

func (m *Manager) onSessionChange(change gateway.SessionChange) {
	switch change.Kind {
	case gateway.SessionPresent:
		ctx, cancel := context.WithTimeout(context.Background(), m.loadTimeout)
		defer cancel()
		m.LoadProfile(ctx, change.Session)
	case gateway.SessionAbsent:
		m.clear()
	}
}

// begin resets any existing user before a new authentication attempt.
func (m *Manager) begin() {
	m.clear()
	m.mu.Lock()
	m.state = StateAuthenticating
	m.mu.Unlock()
}

func (m *Manager) fail() {
	m.mu.Lock()
	if m.state == StateAuthenticating {
		m.state = StateAnonymous
	}
	m.mu.Unlock()
}

func (m *Manager) signedInUser() (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, ErrNotSignedIn
	}
	return copyUser(m.user), nil
}

// clear drops the local user and publishes SignedOut if someone was signed in.
func (m *Manager) clear() {
	m.mu.Lock()
	wasSignedIn := m.user != nil
	m.state = StateAnonymous
	m.user = nil
	m.session = nil
	listeners := m.snapshot()
	m.mu.Unlock()

	if wasSignedIn {
		publish(listeners, Event{Kind: SignedOut})
	}
}

// snapshot must be called with m.mu held.
func (m *Manager) snapshot() []Listener {
	out := make([]Listener, 0, len(m.listeners))
	for i := 0; i < m.nextID; i++ {
		if l, ok := m.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

func publish(listeners []Listener, e Event) {
	for _, l := range listeners {
		l(e)
	}
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	c.PurchasedProducts = make([]string, len(u.PurchasedProducts))
	copy(c.PurchasedProducts, u.PurchasedProducts)
	return &c
}

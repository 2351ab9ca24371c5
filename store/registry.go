package store

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/MrPsycho237/digimarketstore/session"
)

// AuthFactory returns a fresh auth client with no session.
type AuthFactory func() gateway.Auth

// Client is the session manager and store of one signed-in browser session.
type Client struct {
	Session *session.Manager
	Store   *Store
}

func (c *Client) close() {
	c.Store.Close()
	c.Session.Close()
}

// Registry owns one Client per access token plus a shared anonymous client for
// public catalog reads.
type Registry struct {
	gw        gateway.Gateway
	newAuth   AuthFactory
	logger    *slog.Logger
	storeOpts []Option

	anonymous *Client

	mu      sync.Mutex
	clients map[string]*Client
}

func NewRegistry(gw gateway.Gateway, newAuth AuthFactory, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry{
		gw:      gw,
		newAuth: newAuth,
		logger:  logger,
		clients: make(map[string]*Client),
	}
	r.storeOpts = append([]Option{WithLogger(logger)}, opts...)
	r.storeOpts = append(r.storeOpts, WithPurchasesChanged(r.SyncPurchases))
	r.anonymous = r.newClient()
	return r
}

func (r *Registry) newClient() *Client {
	mgr := session.NewManager(r.gw, r.newAuth(), session.WithLogger(r.logger))
	return &Client{Session: mgr, Store: New(r.gw, mgr, r.storeOpts...)}
}

// Anonymous is the client used for requests without a token.
func (r *Registry) Anonymous() *Client {
	return r.anonymous
}

// Reconciler returns a reconciler over the registry's gateway.
func (r *Registry) Reconciler() *Reconciler {
	return NewReconciler(r.gw, r.logger)
}

// SignIn authenticates a new client and registers it under its access token.
func (r *Registry) SignIn(ctx context.Context, email, password string) (*Client, *gateway.Session, error) {
	return r.register(func(c *Client) error {
		_, err := c.Session.SignIn(ctx, email, password)
		return err
	})
}

func (r *Registry) SignUp(ctx context.Context, email, password, name string, role models.Role) (*Client, *gateway.Session, error) {
	return r.register(func(c *Client) error {
		_, err := c.Session.SignUp(ctx, email, password, name, role)
		return err
	})
}

func (r *Registry) register(authenticate func(*Client) error) (*Client, *gateway.Session, error) {
	c := r.newClient()
	if err := authenticate(c); err != nil {
		c.close()
		return nil, nil, err
	}
	sess := c.Session.Session()
	if sess == nil {
		c.close()
		return nil, nil, session.ErrNotSignedIn
	}

	r.mu.Lock()
	r.clients[sess.AccessToken] = c
	r.mu.Unlock()
	return c, sess, nil
}

// Resolve returns the client for token, restoring it from the auth subsystem when
// this process has not seen the token yet.
func (r *Registry) Resolve(ctx context.Context, token string) (*Client, error) {
	r.mu.Lock()
	c, ok := r.clients[token]
	r.mu.Unlock()

	if ok {
		if live(c, time.Now()) {
			return c, nil
		}
		r.drop(token, c)
		return nil, gateway.ErrSessionExpired
	}

	c = r.newClient()
	if _, err := c.Session.Restore(ctx, token); err != nil {
		c.close()
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clients[token]; ok {
		c.close()
		return existing, nil
	}
	r.clients[token] = c
	return c, nil
}

// SignOut ends the session behind token. Local state is dropped even when the
// remote sign-out fails.
func (r *Registry) SignOut(ctx context.Context, token string) error {
	r.mu.Lock()
	c, ok := r.clients[token]
	delete(r.clients, token)
	r.mu.Unlock()

	if !ok {
		c = r.newClient()
		if _, err := c.Session.Restore(ctx, token); err != nil {
			c.close()
			return err
		}
	}
	defer c.close()
	return c.Session.SignOut(ctx)
}

// Prune drops clients whose session is gone or expired and reports how many.
func (r *Registry) Prune(now time.Time) int {
	r.mu.Lock()
	var stale []*Client
	for token, c := range r.clients {
		if !live(c, now) {
			stale = append(stale, c)
			delete(r.clients, token)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.close()
	}
	return len(stale)
}

// StartPruning calls Prune every interval until ctx is done.
func (r *Registry) StartPruning(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Prune(now); n > 0 {
				r.logger.Info("pruned expired clients", "count", n)
			}
		}
	}
}

// SyncPurchases re-reads userID's purchase records and pushes them to every live
// client of that user.
func (r *Registry) SyncPurchases(ctx context.Context, userID string) {
	r.mu.Lock()
	var targets []*Client
	for _, c := range r.clients {
		if user := c.Session.User(); user != nil && user.ID == userID {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	records, err := r.gw.Purchases().List(ctx, gateway.PurchaseFilter{UserID: userID})
	if err != nil {
		r.logger.Warn("purchase sync failed", "user_id", userID, "error", err)
		return
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ProductID)
	}
	for _, c := range targets {
		c.Session.SetPurchases(userID, ids)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close tears down every client, including the anonymous one.
func (r *Registry) Close() error {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	r.anonymous.close()
	return nil
}

func (r *Registry) drop(token string, c *Client) {
	r.mu.Lock()
	if r.clients[token] == c {
		delete(r.clients, token)
	}
	r.mu.Unlock()
	c.close()
}

func live(c *Client, now time.Time) bool {
	sess := c.Session.Session()
	return sess != nil && now.Before(sess.ExpiresAt)
}

package gatewaytest

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/google/uuid"
)

// Auth is an in-memory gateway.Auth client sharing users with its Memory.
// Failures are injected with Memory.Fail("auth.sign_in", ...) and friends.
type Auth struct {
	m *Memory

	mu        sync.Mutex
	current   *gateway.Session
	listeners map[int]func(gateway.SessionChange)
	nextID    int
}

var _ gateway.Auth = (*Auth)(nil)

func (m *Memory) NewAuth() *Auth {
	return &Auth{m: m, listeners: make(map[int]func(gateway.SessionChange))}
}

// SeedUser registers a credential and profile without going through an Auth client.
func (m *Memory) SeedUser(email, password, name string, role models.Role) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	email = strings.ToLower(email)
	m.users[email] = memoryUser{id: id, password: password}
	now := m.tick()
	m.profiles[id] = models.Profile{ID: id, Email: email, Name: name, Role: role, CreatedAt: now, UpdatedAt: now}
	return id
}

func authFail(op string, err error) error {
	return &gateway.AuthError{Op: op, Err: err}
}

func (a *Auth) session(userID, email string, role models.Role) *gateway.Session {
	return &gateway.Session{
		AccessToken: "token-" + uuid.NewString(),
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
		UserID:      userID,
		Email:       email,
		Role:        role,
	}
}

func (a *Auth) SignUp(_ context.Context, params gateway.SignUpParams) (*gateway.Session, error) {
	a.m.mu.Lock()
	if err := a.m.enter("auth.sign_up"); err != nil {
		a.m.mu.Unlock()
		return nil, authFail("sign_up", err)
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		a.m.mu.Unlock()
		return nil, authFail("sign_up", gateway.ErrInvalidEmail)
	}
	if len(params.Password) < 8 {
		a.m.mu.Unlock()
		return nil, authFail("sign_up", gateway.ErrWeakPassword)
	}
	if _, taken := a.m.users[email]; taken {
		a.m.mu.Unlock()
		return nil, authFail("sign_up", gateway.ErrEmailTaken)
	}
	role := params.Role
	if role == "" {
		role = models.RoleCustomer
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	id := uuid.NewString()
	a.m.users[email] = memoryUser{id: id, password: params.Password}
	now := a.m.tick()
	a.m.profiles[id] = models.Profile{ID: id, Email: email, Name: name, Role: role, CreatedAt: now, UpdatedAt: now}
	a.m.mu.Unlock()

	sess := a.session(id, email, role)
	a.set(sess)
	return sess, nil
}

func (a *Auth) SignInWithPassword(_ context.Context, email, password string) (*gateway.Session, error) {
	a.m.mu.Lock()
	if err := a.m.enter("auth.sign_in"); err != nil {
		a.m.mu.Unlock()
		return nil, authFail("sign_in", err)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	user, ok := a.m.users[email]
	if !ok || user.password != password {
		a.m.mu.Unlock()
		return nil, authFail("sign_in", gateway.ErrInvalidCredentials)
	}
	role := a.m.profiles[user.id].Role
	a.m.mu.Unlock()

	sess := a.session(user.id, email, role)
	a.set(sess)
	return sess, nil
}

func (a *Auth) SignOut(_ context.Context) error {
	a.m.mu.Lock()
	err := a.m.enter("auth.sign_out")
	a.mu.Lock()
	if a.current != nil {
		a.m.revoked[a.current.AccessToken] = true
	}
	had := a.current != nil
	a.mu.Unlock()
	a.m.mu.Unlock()

	if had {
		a.set(nil)
	}
	if err != nil {
		return authFail("sign_out", err)
	}
	return nil
}

func (a *Auth) GetSession(_ context.Context) (*gateway.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil, authFail("get_session", gateway.ErrNoSession)
	}
	copied := *a.current
	return &copied, nil
}

// RestoreSession accepts tokens issued by any Auth of the same Memory that were not signed out.
func (a *Auth) RestoreSession(ctx context.Context, accessToken string) (*gateway.Session, error) {
	a.m.mu.Lock()
	if err := a.m.enter("auth.restore_session"); err != nil {
		a.m.mu.Unlock()
		return nil, authFail("restore_session", err)
	}
	sess, ok := a.m.tokens()[accessToken]
	revoked := a.m.revoked[accessToken]
	a.m.mu.Unlock()

	if !ok || revoked {
		return nil, authFail("restore_session", gateway.ErrSessionExpired)
	}
	a.set(&sess)
	return &sess, nil
}

func (a *Auth) OnSessionChange(fn func(gateway.SessionChange)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

func (a *Auth) set(sess *gateway.Session) {
	if sess != nil {
		a.m.mu.Lock()
		a.m.issued = append(a.m.issued, *sess)
		a.m.mu.Unlock()
	}

	a.mu.Lock()
	a.current = sess
	var listeners []func(gateway.SessionChange)
	for i := 0; i < a.nextID; i++ {
		if fn, ok := a.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	a.mu.Unlock()

	change := gateway.SessionChange{Kind: gateway.SessionAbsent}
	if sess != nil {
		copied := *sess
		change = gateway.SessionChange{Kind: gateway.SessionPresent, Session: &copied}
	}
	for _, fn := range listeners {
		fn(change)
	}
}

// tokens indexes every issued session by access token. m.mu must be held.
func (m *Memory) tokens() map[string]gateway.Session {
	out := make(map[string]gateway.Session, len(m.issued))
	for _, s := range m.issued {
		out[s.AccessToken] = s
	}
	return out
}

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthService is the shared, stateless half of the auth subsystem: credentials,
// profiles created at sign-up, and revocable session rows.
type AuthService struct {
	db     *gorm.DB
	hasher *PasswordHasher
	tokens *TokenManager
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, hasher *PasswordHasher, tokens *TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AuthService{
		db:     db,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// NewClient returns a fresh auth client with no current session.
func (s *AuthService) NewClient() *AuthClient {
	return &AuthClient{
		svc:       s,
		listeners: make(map[int]func(SessionChange)),
	}
}

func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	if len(password) < 8 {
		return ErrWeakPassword
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

func (s *AuthService) signUp(ctx context.Context, params SignUpParams) (*Session, string, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if err := validateCredentials(email, params.Password); err != nil {
		return nil, "", err
	}

	role := params.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if role != models.RoleCustomer && role != models.RoleAdmin {
		return nil, "", models.ErrInvalidRole
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	userID := uuid.NewString()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Credential{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&models.Credential{ID: userID, Email: email, PasswordHash: hash}).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{ID: userID, Email: email, Name: name, Role: role}).Error
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("user signed up", "user_id", userID, "role", role)
	return s.issue(ctx, userID, email, role)
}

func (s *AuthService) signIn(ctx context.Context, email, password string) (*Session, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var cred models.Credential
	if err := s.db.WithContext(ctx).First(&cred, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !s.hasher.Verify(password, cred.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	role := models.RoleCustomer
	var profile models.Profile
	if err := s.db.WithContext(ctx).Select("role").First(&profile, "id = ?", cred.ID).Error; err == nil && profile.Role != "" {
		role = profile.Role
	}
	return s.issue(ctx, cred.ID, cred.Email, role)
}

// issue stores a session row and signs a token for it.
func (s *AuthService) issue(ctx context.Context, userID, email string, role models.Role) (*Session, string, error) {
	now := s.now()
	row := models.AuthSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(s.tokens.TTL()),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, "", fmt.Errorf("failed to store session: %w", err)
	}

	token, err := s.tokens.Issue(row.ID, userID, email, role, now, row.ExpiresAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return &Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   row.ExpiresAt,
		UserID:      userID,
		Email:       email,
		Role:        role,
	}, row.ID, nil
}

// verify checks the token signature and that its session row is still live.
func (s *AuthService) verify(ctx context.Context, accessToken string) (*Session, string, error) {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return nil, "", err
	}

	var row models.AuthSession
	if err := s.db.WithContext(ctx).First(&row, "id = ?", claims.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrSessionExpired
		}
		return nil, "", err
	}
	if row.RevokedAt != nil || !s.now().Before(row.ExpiresAt) {
		return nil, "", ErrSessionExpired
	}

	return &Session{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   row.ExpiresAt,
		UserID:      claims.UserID,
		Email:       claims.Email,
		Role:        claims.Role,
	}, row.ID, nil
}

func (s *AuthService) revoke(ctx context.Context, sessionID string) error {
	now := s.now()
	return s.db.WithContext(ctx).
		Model(&models.AuthSession{}).
		Where("id = ?", sessionID).
		Update("revoked_at", &now).Error
}

// AuthClient holds one client's current session and its change listeners.
type AuthClient struct {
	svc *AuthService

	mu        sync.Mutex
	current   *Session
	sessionID string
	listeners map[int]func(SessionChange)
	nextID    int
}

var _ Auth = (*AuthClient)(nil)

func (c *AuthClient) SignUp(ctx context.Context, params SignUpParams) (*Session, error) {
	sess, id, err := c.svc.signUp(ctx, params)
	if err != nil {
		return nil, authErr("sign_up", err)
	}
	c.set(sess, id)
	return sess, nil
}

func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	sess, id, err := c.svc.signIn(ctx, email, password)
	if err != nil {
		return nil, authErr("sign_in", err)
	}
	c.set(sess, id)
	return sess, nil
}

// SignOut revokes the current session. Local state is cleared even if revocation fails.
func (c *AuthClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	id := c.sessionID
	had := c.current != nil
	c.mu.Unlock()

	var err error
	if id != "" {
		err = c.svc.revoke(ctx, id)
	}
	if had {
		c.set(nil, "")
	}
	if err != nil {
		return authErr("sign_out", err)
	}
	return nil
}

func (c *AuthClient) GetSession(_ context.Context) (*Session, error) {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()

	if sess == nil {
		return nil, authErr("get_session", ErrNoSession)
	}
	if !c.svc.now().Before(sess.ExpiresAt) {
		c.set(nil, "")
		return nil, authErr("get_session", ErrSessionExpired)
	}
	copied := *sess
	return &copied, nil
}

func (c *AuthClient) RestoreSession(ctx context.Context, accessToken string) (*Session, error) {
	sess, id, err := c.svc.verify(ctx, accessToken)
	if err != nil {
		return nil, authErr("restore_session", err)
	}
	c.set(sess, id)
	return sess, nil
}

func (c *AuthClient) OnSessionChange(fn func(SessionChange)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// set replaces the current session and notifies listeners outside the lock.
func (c *AuthClient) set(sess *Session, sessionID string) {
	c.mu.Lock()
	c.current = sess
	c.sessionID = sessionID
	listeners := make([]func(SessionChange), 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	change := SessionChange{Kind: SessionAbsent}
	if sess != nil {
		copied := *sess
		change = SessionChange{Kind: SessionPresent, Session: &copied}
	}
	for _, fn := range listeners {
		fn(change)
	}
}

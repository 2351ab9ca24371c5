package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	tokens := NewTokenManager(TokenConfig{SecretKey: "test-secret", TTL: time.Hour, Issuer: "test"})
	return NewAuthService(setupTestDB(t), NewPasswordHasher(bcrypt.MinCost), tokens, nil)
}

func TestAuthClient(t *testing.T) {
	ctx := context.Background()

	t.Run("SignUpCreatesProfileAndSession", func(t *testing.T) {
		svc := newTestAuthService(t)
		client := svc.NewClient()

		sess, err := client.SignUp(ctx, SignUpParams{Email: "Ana@Example.com", Password: "password123", Name: "Ana"})
		require.NoError(t, err)
		require.Equal(t, "ana@example.com", sess.Email)
		require.Equal(t, models.RoleCustomer, sess.Role)
		require.NotEmpty(t, sess.AccessToken)

		profile, err := New(svc.db).Profiles().Get(ctx, sess.UserID)
		require.NoError(t, err)
		require.Equal(t, "Ana", profile.Name)

		current, err := client.GetSession(ctx)
		require.NoError(t, err)
		require.Equal(t, sess.UserID, current.UserID)
	})

	t.Run("SignUpValidation", func(t *testing.T) {
		svc := newTestAuthService(t)
		client := svc.NewClient()

		_, err := client.SignUp(ctx, SignUpParams{Email: "not-an-email", Password: "password123"})
		require.ErrorIs(t, err, ErrInvalidEmail)
		require.True(t, IsAuthError(err))

		_, err = client.SignUp(ctx, SignUpParams{Email: "ana@example.com", Password: "short"})
		require.ErrorIs(t, err, ErrWeakPassword)

		_, err = client.SignUp(ctx, SignUpParams{Email: "ana@example.com", Password: "password123", Role: "owner"})
		require.ErrorIs(t, err, models.ErrInvalidRole)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		svc := newTestAuthService(t)
		_, err := svc.NewClient().SignUp(ctx, SignUpParams{Email: "ana@example.com", Password: "password123"})
		require.NoError(t, err)

		_, err = svc.NewClient().SignUp(ctx, SignUpParams{Email: "ANA@example.com", Password: "password123"})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("SignInWithPassword", func(t *testing.T) {
		svc := newTestAuthService(t)
		_, err := svc.NewClient().SignUp(ctx, SignUpParams{Email: "admin@example.com", Password: "password123", Role: models.RoleAdmin})
		require.NoError(t, err)

		client := svc.NewClient()
		_, err = client.SignInWithPassword(ctx, "admin@example.com", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = client.SignInWithPassword(ctx, "nobody@example.com", "password123")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		sess, err := client.SignInWithPassword(ctx, "admin@example.com", "password123")
		require.NoError(t, err)
		require.Equal(t, models.RoleAdmin, sess.Role)
	})

	t.Run("SignOutRevokesToken", func(t *testing.T) {
		svc := newTestAuthService(t)
		client := svc.NewClient()
		sess, err := client.SignUp(ctx, SignUpParams{Email: "ana@example.com", Password: "password123"})
		require.NoError(t, err)

		restored, err := svc.NewClient().RestoreSession(ctx, sess.AccessToken)
		require.NoError(t, err)
		require.Equal(t, sess.UserID, restored.UserID)

		require.NoError(t, client.SignOut(ctx))
		_, err = client.GetSession(ctx)
		require.ErrorIs(t, err, ErrNoSession)

		_, err = svc.NewClient().RestoreSession(ctx, sess.AccessToken)
		require.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("RestoreRejectsForeignToken", func(t *testing.T) {
		svc := newTestAuthService(t)
		other := NewTokenManager(TokenConfig{SecretKey: "another-secret"})
		token, err := other.Issue("s1", "u1", "ana@example.com", models.RoleCustomer, time.Now(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = svc.NewClient().RestoreSession(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("GetSessionExpires", func(t *testing.T) {
		svc := newTestAuthService(t)
		client := svc.NewClient()
		_, err := client.SignUp(ctx, SignUpParams{Email: "ana@example.com", Password: "password123"})
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = client.GetSession(ctx)
		require.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("SessionChangeNotifications", func(t *testing.T) {
		svc := newTestAuthService(t)
		client := svc.NewClient()

		var kinds []SessionChangeKind
		unsubscribe := client.OnSessionChange(func(change SessionChange) {
			kinds = append(kinds, change.Kind)
			if change.Kind == SessionPresent {
				require.NotNil(t, change.Session)
			}
		})

		_, err := client.SignUp(ctx, SignUpParams{Email: "ana@example.com", Password: "password123"})
		require.NoError(t, err)
		require.NoError(t, client.SignOut(ctx))
		require.Equal(t, []SessionChangeKind{SessionPresent, SessionAbsent}, kinds)

		unsubscribe()
		_, err = client.SignInWithPassword(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		require.Len(t, kinds, 2)
	})
}

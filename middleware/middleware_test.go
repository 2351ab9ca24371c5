package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/gateway/gatewaytest"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRegistry(t *testing.T) (*store.Registry, *gatewaytest.Memory) {
	t.Helper()
	mem := gatewaytest.New()
	reg := store.NewRegistry(mem, func() gateway.Auth { return mem.NewAuth() }, nil)
	t.Cleanup(func() { reg.Close() })
	return reg, mem
}

func signIn(t *testing.T, reg *store.Registry, mem *gatewaytest.Memory, email string, role models.Role) string {
	t.Helper()
	mem.SeedUser(email, "password123", "Test", role)
	_, sess, err := reg.SignIn(context.Background(), email, "password123")
	require.NoError(t, err)
	return sess.AccessToken
}

func serve(r *gin.Engine, path, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
		"":             "",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(c), "header %q", header)
	}
}

func TestValidateToken(t *testing.T) {
	reg, mem := newRegistry(t)
	token := signIn(t, reg, mem, "ana@example.com", models.RoleCustomer)

	r := gin.New()
	r.GET("/me", ValidateToken(reg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("user_id"),
			"email":   Client(c).Store.User().Email,
			"token":   Token(c),
		})
	})

	w := serve(r, "/me", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana@example.com")
	assert.Contains(t, w.Body.String(), token)

	w = serve(r, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, "/me", "Authorization", "Bearer token-unknown")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	require.NoError(t, reg.SignOut(context.Background(), token))
	w = serve(r, "/me", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	reg, mem := newRegistry(t)
	customer := signIn(t, reg, mem, "ana@example.com", models.RoleCustomer)
	admin := signIn(t, reg, mem, "root@example.com", models.RoleAdmin)

	r := gin.New()
	r.GET("/admin", RequireAdmin(reg), func(c *gin.Context) {
		c.String(http.StatusOK, Client(c).Store.User().Email)
	})

	t.Run("AnonymousGoesToSignIn", func(t *testing.T) {
		w := serve(r, "/admin", "", "")
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, SignInPath, w.Header().Get("Location"))
	})

	t.Run("InvalidTokenGoesToSignIn", func(t *testing.T) {
		w := serve(r, "/admin", "Authorization", "Bearer token-unknown")
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, SignInPath, w.Header().Get("Location"))
	})

	t.Run("CustomerGoesHome", func(t *testing.T) {
		w := serve(r, "/admin", "Authorization", "Bearer "+customer)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, HomePath, w.Header().Get("Location"))
	})

	t.Run("AdminPasses", func(t *testing.T) {
		w := serve(r, "/admin", "Authorization", "Bearer "+admin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "root@example.com", w.Body.String())
	})
}

func TestValidateAPIKey(t *testing.T) {
	r := gin.New()
	r.GET("/ops", ValidateAPIKey("s3cret"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, "/ops", "X-API-KEY", "s3cret").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/ops", "X-API-KEY", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/ops", "", "").Code)

	open := gin.New()
	open.GET("/ops", ValidateAPIKey(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusUnauthorized, serve(open, "/ops", "X-API-KEY", "").Code)
}

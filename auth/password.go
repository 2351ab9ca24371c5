package auth

import (
	"net/http"
	"time"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
)

type SignUpInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type SignInInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

func respondSession(c *gin.Context, status int, client *store.Client, sess *gateway.Session) {
	c.JSON(status, sessionResponse{
		AccessToken: sess.AccessToken,
		TokenType:   sess.TokenType,
		ExpiresAt:   sess.ExpiresAt,
		User:        client.Store.User(),
	})
}

// POST /auth/signup
// Creating an admin account requires the ops API key.
func SignUp(reg *store.Registry, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input SignUpInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		role, err := models.ParseRole(input.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if role == models.RoleAdmin && !middleware.HasAPIKey(c, apiKey) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin sign-up requires a valid API key"})
			return
		}

		client, sess, err := reg.SignUp(c.Request.Context(), input.Email, input.Password, input.Name, role)
		if err != nil {
			controllers.RespondError(c, err, "Failed to sign up")
			return
		}
		respondSession(c, http.StatusCreated, client, sess)
	}
}

// POST /auth/signin
func SignIn(reg *store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input SignInInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		client, sess, err := reg.SignIn(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			controllers.RespondError(c, err, "Failed to sign in")
			return
		}
		respondSession(c, http.StatusOK, client, sess)
	}
}

// POST /auth/signout
// The session is dropped locally even when the remote revocation fails.
func SignOut(reg *store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.BearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}

		if err := reg.SignOut(c.Request.Context(), token); err != nil {
			controllers.RespondError(c, err, "Failed to sign out")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
	}
}

// GET /auth/session
func GetSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := middleware.Client(c)
		sess := client.Session.Session()
		if sess == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
			return
		}
		respondSession(c, http.StatusOK, client, sess)
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
)

const (
	clientKey = "client"
	tokenKey  = "token"
)

// BearerToken extracts the access token from the Authorization header. A bare token
// without the "Bearer " prefix is accepted too.
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// ValidateToken resolves the caller's client from its access token and stores it,
// the token and the user id in the gin context.
func ValidateToken(reg *store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			c.Abort()
			return
		}

		client, err := reg.Resolve(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}
		user := client.Store.User()
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(clientKey, client)
		c.Set(tokenKey, tokenString)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// Client returns the client stored by ValidateToken or RequireAdmin, or nil.
func Client(c *gin.Context) *store.Client {
	v, ok := c.Get(clientKey)
	if !ok {
		return nil
	}
	client, _ := v.(*store.Client)
	return client
}

// Token returns the access token stored by ValidateToken or RequireAdmin.
func Token(c *gin.Context) string {
	return c.GetString(tokenKey)
}

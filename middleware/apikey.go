package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HasAPIKey reports whether the request carries the ops API key. An empty key
// never matches.
func HasAPIKey(c *gin.Context, apiKey string) bool {
	given := c.GetHeader("X-API-KEY")
	return apiKey != "" && subtle.ConstantTimeCompare([]byte(given), []byte(apiKey)) == 1
}

func ValidateAPIKey(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasAPIKey(c, apiKey) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing API key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"

	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
)

const (
	SignInPath = "/auth"
	HomePath   = "/"
)

// RequireAdmin gates the admin views. Callers without a valid session are sent to
// the sign-in page and signed-in non-admins to the home page.
func RequireAdmin(reg *store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			c.Redirect(http.StatusFound, SignInPath)
			c.Abort()
			return
		}

		client, err := reg.Resolve(c.Request.Context(), tokenString)
		if err != nil {
			c.Redirect(http.StatusFound, SignInPath)
			c.Abort()
			return
		}
		user := client.Store.User()
		if user == nil {
			c.Redirect(http.StatusFound, SignInPath)
			c.Abort()
			return
		}
		if !user.IsAdmin() {
			c.Redirect(http.StatusFound, HomePath)
			c.Abort()
			return
		}

		c.Set(clientKey, client)
		c.Set(tokenKey, tokenString)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

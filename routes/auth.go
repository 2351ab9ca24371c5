package routes

import (
	"github.com/MrPsycho237/digimarketstore/auth"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes registers all “/auth/*” endpoints.
func SetupAuthRoutes(r *gin.Engine, deps Deps) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", auth.SignUp(deps.Registry, deps.APIKey))
		authGroup.POST("/signin", auth.SignIn(deps.Registry))
		authGroup.POST("/signout", auth.SignOut(deps.Registry))
		authGroup.GET("/session", middleware.ValidateToken(deps.Registry), auth.GetSession())
	}
}

package routes

import (
	cartControllers "github.com/MrPsycho237/digimarketstore/controllers/cart"
	orderControllers "github.com/MrPsycho237/digimarketstore/controllers/order"
	userControllers "github.com/MrPsycho237/digimarketstore/controllers/user"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/gin-gonic/gin"
)

// SetupUserRoutes registers all “/user/*” endpoints. Requires a session token.
func SetupUserRoutes(r *gin.Engine, deps Deps) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken(deps.Registry))
	{
		// ──────────────── User Profile ────────────────
		userGroup.GET("", userControllers.GetUser())    // GET /user
		userGroup.PUT("", userControllers.UpdateUser()) // PUT /user
		userGroup.GET("/library", userControllers.GetLibrary())
		userGroup.GET("/orders", orderControllers.GetUserOrdersHandler())

		// ──────────────── Shopping Cart ────────────────
		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("", cartControllers.GetUserCart())                   // GET /user/cart
			cartGroup.POST("", cartControllers.AddCartItem())                  // POST /user/cart
			cartGroup.DELETE("/:product_id", cartControllers.DeleteCartItem()) // DELETE /user/cart/:product_id
			cartGroup.DELETE("", cartControllers.ClearUserCart())              // DELETE /user/cart
		}

		userGroup.POST("/checkout", cartControllers.Checkout())
	}
}

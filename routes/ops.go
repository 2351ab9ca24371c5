package routes

import (
	orderControllers "github.com/MrPsycho237/digimarketstore/controllers/order"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/gin-gonic/gin"
)

// SetupOpsRoutes registers maintenance endpoints. Requires the API key.
func SetupOpsRoutes(r *gin.Engine, deps Deps) {
	ops := r.Group("/ops")
	ops.Use(middleware.ValidateAPIKey(deps.APIKey))
	{
		ops.POST("/reconcile-purchases", orderControllers.ReconcilePurchasesHandler(deps.Registry))
	}
}

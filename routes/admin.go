package routes

import (
	adminController "github.com/MrPsycho237/digimarketstore/controllers/admin"
	orderControllers "github.com/MrPsycho237/digimarketstore/controllers/order"
	productcontroller "github.com/MrPsycho237/digimarketstore/controllers/product"
	userControllers "github.com/MrPsycho237/digimarketstore/controllers/user"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes registers all “/admin/*” endpoints. Non-admins are redirected away.
func SetupAdminRoutes(r *gin.Engine, deps Deps) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin(deps.Registry))
	{
		adminGroup.GET("/overview", adminController.GetOverview())
		adminGroup.GET("/customers", userControllers.GetAllCustomers())

		// ─────────── Product Management ───────────
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("", productcontroller.CreateProduct())
			productAdmin.PUT("/:id", productcontroller.UpdateProduct())
			productAdmin.GET("", productcontroller.GetProducts(deps.Registry))
			productAdmin.DELETE("/:id", productcontroller.DeleteProduct())
			productAdmin.POST("/import-excel", productcontroller.ImportProductsFromExcel())
			productAdmin.GET("/export-excel", productcontroller.ExportProductsToExcel())
		}

		// ─────────── Order Management ───────────
		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", orderControllers.GetAllOrdersHandler())
			orderAdmin.PUT("/:orderID/status", orderControllers.UpdateOrderStatusHandler(deps.Feed))
			orderAdmin.GET("/ws", orderControllers.OrderWebSocketHandler(deps.Feed))
		}
	}
}

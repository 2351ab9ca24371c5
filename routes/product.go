package routes

import (
	productcontroller "github.com/MrPsycho237/digimarketstore/controllers/product"
	"github.com/gin-gonic/gin"
)

// SetupProductRoutes registers the public catalog.
func SetupProductRoutes(r *gin.Engine, deps Deps) {
	products := r.Group("/products")
	{
		products.GET("", productcontroller.GetProducts(deps.Registry))
		products.GET("/categories", productcontroller.GetCategories(deps.Registry))
		products.GET("/:id", productcontroller.GetProductByID(deps.Registry))
	}
}

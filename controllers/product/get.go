package productcontroller

import (
	"net/http"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
)

// GetProductByID returns a single product.
// URL param: /products/:id
func GetProductByID(reg *store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product ID is required"})
			return
		}

		product, err := reg.Anonymous().Store.Product(c.Request.Context(), id)
		if err != nil {
			controllers.RespondError(c, err, "Failed to retrieve product")
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

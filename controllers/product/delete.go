package productcontroller

import (
	"net/http"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/gin-gonic/gin"
)

// DELETE /admin/products/:id
func DeleteProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.Client(c).Store.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
			controllers.RespondError(c, err, "Failed to delete product")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
	}
}

package productcontroller

import (
	"net/http"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/gin-gonic/gin"
)

// PUT /admin/products/:id
// Only the fields present in the body are changed.
func UpdateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		var update models.ProductUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		st := middleware.Client(c).Store
		id := c.Param("id")
		if err := st.UpdateProduct(c.Request.Context(), id, update); err != nil {
			controllers.RespondError(c, err, "Failed to update product")
			return
		}

		product, err := st.Product(c.Request.Context(), id)
		if err != nil {
			controllers.RespondError(c, err, "Failed to retrieve product")
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

package cartControllers

import (
	"net/http"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/gin-gonic/gin"
)

// POST /user/checkout
func Checkout() gin.HandlerFunc {
	return func(c *gin.Context) {
		receipt, err := middleware.Client(c).Store.Checkout(c.Request.Context())
		if err != nil {
			controllers.RespondError(c, err, "Checkout failed")
			return
		}
		if receipt == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
			return
		}
		c.JSON(http.StatusCreated, receipt)
	}
}

package cartControllers

import (
	"net/http"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
)

type CartItemInput struct {
	ProductID string `json:"product_id" binding:"required"`
}

type cartResponse struct {
	Items  []models.CartLine `json:"items"`
	Totals store.Totals      `json:"totals"`
}

func respondCart(c *gin.Context, status int, st *store.Store) {
	c.JSON(status, cartResponse{Items: st.Cart(), Totals: st.Totals()})
}

// GET /user/cart
func GetUserCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		respondCart(c, http.StatusOK, middleware.Client(c).Store)
	}
}

// POST /user/cart
// Adds one unit of the product; a product already in the cart has its quantity bumped.
func AddCartItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		st := middleware.Client(c).Store
		product, err := st.Product(c.Request.Context(), input.ProductID)
		if err != nil {
			controllers.RespondError(c, err, "Failed to validate product")
			return
		}

		if err := st.AddToCart(c.Request.Context(), *product); err != nil {
			controllers.RespondError(c, err, "Failed to add item to cart")
			return
		}
		respondCart(c, http.StatusOK, st)
	}
}

// DELETE /user/cart/:product_id
func DeleteCartItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := middleware.Client(c).Store
		if err := st.RemoveFromCart(c.Request.Context(), c.Param("product_id")); err != nil {
			controllers.RespondError(c, err, "Failed to remove item from cart")
			return
		}
		respondCart(c, http.StatusOK, st)
	}
}

// DELETE /user/cart
func ClearUserCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := middleware.Client(c).Store
		if err := st.ClearCart(c.Request.Context()); err != nil {
			controllers.RespondError(c, err, "Failed to clear cart")
			return
		}
		respondCart(c, http.StatusOK, st)
	}
}

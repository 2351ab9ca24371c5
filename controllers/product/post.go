package productcontroller

import (
	"net/http"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductInput struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" binding:"required"`
	Image       string          `json:"image"`
	Rating      float64         `json:"rating"`
	Reviews     int             `json:"reviews"`
	Features    []string        `json:"features"`
}

// POST /admin/products
func CreateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ProductInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		product, err := middleware.Client(c).Store.AddProduct(c.Request.Context(), models.Product{
			Title:       input.Title,
			Description: input.Description,
			Price:       input.Price,
			Category:    input.Category,
			Image:       input.Image,
			Rating:      input.Rating,
			Reviews:     input.Reviews,
			Features:    models.StringList(input.Features),
		})
		if err != nil {
			controllers.RespondError(c, err, "Failed to create product")
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

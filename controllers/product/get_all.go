package productcontroller

import (
	"log"
	"net/http"
	"strings"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
)

var sortFields = map[string]bool{
	"created_at": true,
	"price":      true,
	"title":      true,
	"rating":     true,
	"reviews":    true,
}

// GetProducts lists the catalog.
// Query: category, search, sort_by (created_at|price|title|rating|reviews), order (asc|desc)
func GetProducts(reg *store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sortBy := c.DefaultQuery("sort_by", "created_at")
		if !sortFields[sortBy] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort_by"})
			return
		}
		sortOrder := gateway.SortOrder(strings.ToLower(c.DefaultQuery("order", "desc")))
		if sortOrder != gateway.SortAsc && sortOrder != gateway.SortDesc {
			sortOrder = gateway.SortDesc
		}

		catalog := reg.Anonymous().Store
		if err := catalog.LoadProducts(c.Request.Context()); err != nil {
			// previous catalog is still served
			log.Println("❌ Failed to refresh products:", err)
		}

		products := catalog.Products(gateway.ProductFilter{
			Category: c.Query("category"),
			Search:   c.Query("search"),
			SortBy:   sortBy,
			Order:    sortOrder,
		})
		c.JSON(http.StatusOK, products)
	}
}

// GetCategories lists the distinct product categories.
func GetCategories(reg *store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog := reg.Anonymous().Store
		if err := catalog.LoadProducts(c.Request.Context()); err != nil {
			log.Println("❌ Failed to refresh products:", err)
		}
		c.JSON(http.StatusOK, catalog.Categories())
	}
}

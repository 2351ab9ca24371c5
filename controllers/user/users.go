package userControllers

import (
	"net/http"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/gin-gonic/gin"
)

type UpdateUserInput struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

// GET /user
func GetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.Client(c).Store.User()
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// PUT /user
func UpdateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input UpdateUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if input.Name != nil && *input.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name must not be empty"})
			return
		}

		user, err := middleware.Client(c).Session.UpdateProfile(c.Request.Context(), models.ProfileUpdate{
			Name:        input.Name,
			PhoneNumber: input.PhoneNumber,
		})
		if err != nil {
			controllers.RespondError(c, err, "Failed to update user")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// GET /user/library
// Products the user has purchased.
func GetLibrary() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := middleware.Client(c).Store.Library(c.Request.Context())
		if err != nil {
			controllers.RespondError(c, err, "Failed to fetch library")
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GET /admin/customers
func GetAllCustomers() gin.HandlerFunc {
	return func(c *gin.Context) {
		customers, err := middleware.Client(c).Store.Customers(c.Request.Context())
		if err != nil {
			controllers.RespondError(c, err, "Failed to fetch customers")
			return
		}
		c.JSON(http.StatusOK, customers)
	}
}

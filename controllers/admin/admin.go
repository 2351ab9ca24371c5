package adminController

import (
	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/gin-gonic/gin"
	"net/http"
)

// GET /admin/overview
func GetOverview() gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := middleware.Client(c).Store.Overview(c.Request.Context())
		if err != nil {
			controllers.RespondError(c, err, "Failed to load overview")
			return
		}
		c.JSON(http.StatusOK, overview)
	}
}

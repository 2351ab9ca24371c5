package orderControllers

import (
	"net/http"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GET /admin/orders?status=completed
func GetAllOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter gateway.OrderFilter
		if s := c.Query("status"); s != "" {
			status, err := models.ParseOrderStatus(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filter.Status = status
		}

		orders, err := middleware.Client(c).Store.Orders(c.Request.Context(), filter)
		if err != nil {
			controllers.RespondError(c, err, "Failed to fetch orders")
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /user/orders
func GetUserOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := middleware.Client(c).Store.OrderHistory(c.Request.Context())
		if err != nil {
			controllers.RespondError(c, err, "Failed to fetch orders")
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// PUT /admin/orders/:orderID/status
// Refunding revokes the order's purchases; completing grants them.
func UpdateOrderStatusHandler(feed *Feed) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		status, err := models.ParseOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := middleware.Client(c).Store.UpdateOrderStatus(c.Request.Context(), c.Param("orderID"), status)
		if err != nil {
			controllers.RespondError(c, err, "Failed to update order status")
			return
		}
		feed.Broadcast(EventOrderUpdated, *order)
		c.JSON(http.StatusOK, order)
	}
}

// POST /ops/reconcile-purchases
func ReconcilePurchasesHandler(reg *store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := reg.Reconciler().Run(c.Request.Context())
		if err != nil {
			controllers.RespondError(c, err, "Purchase reconciliation failed")
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

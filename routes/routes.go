package routes

import (
	orderControllers "github.com/MrPsycho237/digimarketstore/controllers/order"
	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Registry *store.Registry
	Feed     *orderControllers.Feed
	APIKey   string
}

// SetupRoutes is the single entry-point that wires up every route group.
func SetupRoutes(r *gin.Engine, deps Deps) {
	// 1️⃣ Public auth + catalog routes
	SetupAuthRoutes(r, deps)
	SetupProductRoutes(r, deps)

	// 2️⃣ User routes (token-protected)
	SetupUserRoutes(r, deps)

	// 3️⃣ Admin routes (token + admin role)
	SetupAdminRoutes(r, deps)

	// 4️⃣ Ops routes (API-key-protected)
	SetupOpsRoutes(r, deps)
}

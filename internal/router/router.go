package router

import (
	"github.com/gin-gonic/gin"

	"billparse/internal/handler"
	"billparse/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware. historyH may
// be nil; the history routes are only mounted when persistence is enabled.
func Setup(
	corsOrigins []string,
	amountH *handler.AmountHandler,
	historyH *handler.HistoryHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// Extraction endpoint; the path is fixed for compatibility with existing
	// consumers.
	r.POST("/v1/amounts/extract", amountH.Extract)

	if historyH != nil {
		v1 := r.Group("/api/v1")
		extractions := v1.Group("/extractions")
		extractions.GET("", historyH.List)
		extractions.GET("/:id", historyH.GetByID)
		// Static "export" would conflict with the :id wildcard above, so the
		// export routes live under their own group.
		exports := v1.Group("/exports")
		exports.GET("/csv", historyH.ExportCSV)
		exports.GET("/xlsx", historyH.ExportXLSX)
	}

	return r
}

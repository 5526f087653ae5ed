package rest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires all API routes onto a fresh gin engine
func NewRouter(handler *Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Logger(logger))
	router.Use(CORS())
	router.Use(RequestID())

	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	{
		products := api.Group("/products")
		{
			products.GET("/:id/timeline", handler.GetTimeline)
			products.GET("/:id/explosion", handler.ExplodeProduct)
			products.POST("/:id/versions", handler.AuthorVersion)
		}

		boms := api.Group("/boms")
		{
			boms.GET("/diff", handler.CompareBOMs)
			boms.GET("/:id/explosion", handler.ExplodeBOM)
			boms.GET("/:id/raw-materials", handler.GetRawMaterials)
			boms.GET("/:id/yield", handler.GetYield)
			boms.POST("/:id/scale", handler.ScaleBOM)
			boms.POST("/:id/status", handler.ChangeStatus)
		}
	}

	return router
}

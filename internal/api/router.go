package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dieworks-backend/config"
	"dieworks-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, srv config.ServerConfig, limiter *mw.IPRateLimiter, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(log))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedExtensions([]string{".xlsx"})))

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.Use(mw.RateLimit(limiter))

	// Master data changes rarely and is read by every picker in the console.
	md := api.Group("", mw.Cache(mw.NewCacheStore(srv.CacheTTL), srv.CacheTTL))
	{
		md.POST("/die-types", h.CreateDieType)
		md.GET("/die-types", h.ListDieTypes)
		md.GET("/die-types/:id", h.GetDieType)
		md.PUT("/die-types/:id", h.UpdateDieType)

		md.POST("/component-types", h.CreateComponentType)
		md.GET("/component-types", h.ListComponentTypes)
		md.GET("/component-types/:id", h.GetComponentType)
		md.PUT("/component-types/:id", h.UpdateComponentType)
		md.GET("/component-types/:id/steps", h.ListComponentTypeSteps)
		md.PUT("/component-types/:id/steps", h.ReplaceComponentTypeSteps)

		md.POST("/work-centers", h.CreateWorkCenter)
		md.GET("/work-centers", h.ListWorkCenters)
		md.GET("/work-centers/:id", h.GetWorkCenter)
		md.PUT("/work-centers/:id", h.UpdateWorkCenter)
		md.DELETE("/work-centers/:id", h.DeleteWorkCenter)
	}

	api.POST("/stock-items", h.CreateStockItem)
	api.GET("/stock-items", h.ListStockItems)
	api.GET("/stock-items/:id", h.GetStockItem)
	api.POST("/lots", h.CreateLot)
	api.GET("/lots", h.ListLots)
	api.GET("/lots/:id", h.GetLot)
	api.GET("/lots/:id/movements", h.ListLotMovements)

	api.POST("/dies", h.CreateDie)
	api.GET("/dies", h.ListDies)
	api.GET("/dies/:id", h.GetDie)
	api.PUT("/dies/:id", h.UpdateDie)
	api.DELETE("/dies/:id", h.DeleteDie)
	api.PATCH("/dies/:id/status", h.SetDieStatus)
	api.GET("/dies/:id/components", h.ListComponents)
	api.POST("/dies/:id/components", h.AddComponent)
	api.PUT("/dies/:id/components/:componentId", h.UpdateComponent)
	api.DELETE("/dies/:id/components/:componentId", h.DeleteComponent)
	api.GET("/dies/:id/files", h.ListDieFiles)
	api.POST("/dies/:id/files", h.UploadDieFile)
	api.DELETE("/dies/:id/files/:fileId", h.DeleteDieFile)

	api.POST("/production-orders", h.CreateProductionOrder)
	api.GET("/production-orders", h.ListProductionOrders)
	api.GET("/production-orders/:id", h.GetProductionOrder)
	api.POST("/production-orders/:id/cancel", h.CancelProductionOrder)
	api.GET("/production-orders/:id/report.xlsx", h.ProductionOrderReport)
	api.GET("/lookup", h.LookupOrderNumber)

	api.GET("/work-orders/:id", h.GetWorkOrder)
	api.PUT("/work-orders/:id/lot", h.AssignLot)
	api.POST("/work-orders/:id/consumption", h.RecordConsumption)

	api.GET("/operations/:id", h.GetOperation)
	api.POST("/operations/:id/start", h.adminOperation(h.startOperation))
	api.POST("/operations/:id/pause", h.adminOperation(h.pauseOperation))
	api.POST("/operations/:id/resume", h.adminOperation(h.resumeOperation))
	api.POST("/operations/:id/complete", h.adminOperation(h.completeOperation))
	api.POST("/operations/:id/cancel", h.CancelOperation)

	api.POST("/operators", h.CreateOperator)
	api.GET("/operators", h.ListOperators)
	api.GET("/operators/:id", h.GetOperator)
	api.PUT("/operators/:id", h.UpdateOperator)
	api.DELETE("/operators/:id", h.DeleteOperator)
	api.PUT("/operators/:id/work-centers", h.SetOperatorWorkCenters)

	api.GET("/calc/consumption", h.TheoreticalConsumption)

	api.GET("/subscriptions", h.GetSubscription)
	api.PUT("/subscriptions", h.PutSubscription)
	api.DELETE("/subscriptions", h.DeleteSubscription)
	api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

	api.POST("/panel/login", h.PanelLogin)
	panel := api.Group("/panel", mw.PanelAuth(h.auth.JWTSecret))
	{
		panel.GET("/me", h.PanelMe)
		panel.GET("/operations", h.PanelQueue)
		panel.GET("/lookup", h.LookupOrderNumber)
		panel.POST("/operations/:id/start", h.panelOperation(h.startOperation))
		panel.POST("/operations/:id/pause", h.panelOperation(h.pauseOperation))
		panel.POST("/operations/:id/resume", h.panelOperation(h.resumeOperation))
		panel.POST("/operations/:id/complete", h.panelOperation(h.completeOperation))
	}

	return r
}

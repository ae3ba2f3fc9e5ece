// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heatpump-collector/internal/config"
	"heatpump-collector/internal/handler"
	"heatpump-collector/internal/middleware"
	"heatpump-collector/internal/service"
	"heatpump-collector/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config        *config.Config
	logger        *zap.Logger
	statusService *service.StatusService
	configService *service.ConfigService
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	statusService *service.StatusService,
	configService *service.ConfigService,
) *Router {
	return &Router{
		config:        config,
		logger:        logger,
		statusService: statusService,
		configService: configService,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.statusService, r.config, r.logger)
	heatpumpHandler := handler.NewHeatpumpHandler(r.statusService, r.configService, r.logger)
	settingsHandler := handler.NewSettingsHandler(r.config, r.configService, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.statusService, &r.config.Server, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addHeatpumpRoutes(apiV1, heatpumpHandler)
	r.addModelRoutes(apiV1, heatpumpHandler)
	r.addSettingsRoutes(apiV1, settingsHandler)

	r.addWebSocketRoutes(router, wsHandler)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addHeatpumpRoutes sets up heat pump configuration and status routes
func (r *Router) addHeatpumpRoutes(api *gin.RouterGroup, handler *handler.HeatpumpHandler) {
	heatpumps := api.Group("/heatpumps")
	{
		heatpumps.GET("", handler.ListHeatpumps)
		heatpumps.POST("", handler.CreateHeatpump)

		heatpump := heatpumps.Group("/:heatpump_id")
		{
			heatpump.GET("", handler.GetHeatpump)
			heatpump.PUT("", handler.UpdateHeatpump)
			heatpump.DELETE("", handler.DeleteHeatpump)
			heatpump.GET("/cop", handler.GetCOP)
		}
	}
}

// addModelRoutes sets up device model routes
func (r *Router) addModelRoutes(api *gin.RouterGroup, handler *handler.HeatpumpHandler) {
	models := api.Group("/models")
	{
		models.GET("", handler.ListModels)
		models.GET("/:model/registers", handler.GetModelRegisters)
	}
}

// addSettingsRoutes sets up collector settings routes
func (r *Router) addSettingsRoutes(api *gin.RouterGroup, handler *handler.SettingsHandler) {
	settings := api.Group("/settings")
	{
		settings.GET("", handler.GetSettings)
		settings.PUT("", handler.UpdateSettings)
	}
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	{
		ws.GET("/metrics", handler.HandleMetricsConnection)
	}
}

// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heatpump-collector/internal/config"
	"heatpump-collector/internal/service"
	"heatpump-collector/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	statusService *service.StatusService
	config        *config.Config
	logger        *utils.ServiceLogger
	startedAt     time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(statusService *service.StatusService, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		statusService: statusService,
		config:        config,
		logger:        utils.NewServiceLogger(logger, "health-handler"),
		startedAt:     time.Now(),
	}
}

// HealthCheck performs general health check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).String(),
		Checks:    make(map[string]CheckResult),
	}

	if err := h.statusService.Ping(c.Request.Context()); err != nil {
		health.Status = "unhealthy"
		health.Checks["influxdb"] = CheckResult{
			Status:  "unhealthy",
			Message: err.Error(),
		}
	} else {
		health.Checks["influxdb"] = CheckResult{
			Status:  "healthy",
			Message: "InfluxDB connection OK",
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// ReadinessCheck for Kubernetes readiness probe
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if err := h.statusService.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "influxdb not available",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

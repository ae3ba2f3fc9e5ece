// internal/handler/settings_handler.go
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

// SettingsHandler handles collector settings requests
type SettingsHandler struct {
	config        *config.Config
	configService *service.ConfigService
	logger        *utils.ServiceLogger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(cfg *config.Config, configService *service.ConfigService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		config:        cfg,
		configService: configService,
		logger:        utils.NewServiceLogger(logger, "settings-handler"),
	}
}

// UpdateSettingsRequest represents a settings change
type UpdateSettingsRequest struct {
	PollInterval string `json:"poll_interval" binding:"required"`
}

// GetSettings returns the collector settings this server was started with
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Settings retrieved", gin.H{
		"poll_interval":     h.config.Collector.PollInterval.String(),
		"batch_size":        h.config.Collector.BatchSize,
		"batch_interval":    h.config.Collector.BatchInterval.String(),
		"measurement":       h.config.Collector.Measurement,
		"min_poll_interval": config.MinPollInterval.String(),
		"max_poll_interval": config.MaxPollInterval.String(),
	})
}

// UpdateSettings changes the poll interval; the collector picks it up on
// its next start
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	interval, err := time.ParseDuration(req.PollInterval)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid poll interval", err)
		return
	}

	if err := h.configService.UpdatePollInterval(interval); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to update poll interval", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Poll interval updated", gin.H{
		"poll_interval": interval.String(),
	})
}

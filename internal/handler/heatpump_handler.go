// internal/handler/heatpump_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heatpump-collector/internal/model"
	"heatpump-collector/internal/service"
	"heatpump-collector/internal/utils"
)

// HeatpumpHandler handles heat pump configuration and status requests
type HeatpumpHandler struct {
	statusService *service.StatusService
	configService *service.ConfigService
	logger        *utils.ServiceLogger
}

// NewHeatpumpHandler creates a new heat pump handler
func NewHeatpumpHandler(statusService *service.StatusService, configService *service.ConfigService, logger *zap.Logger) *HeatpumpHandler {
	return &HeatpumpHandler{
		statusService: statusService,
		configService: configService,
		logger:        utils.NewServiceLogger(logger, "heatpump-handler"),
	}
}

// ListHeatpumps returns all configured heat pumps with their latest metrics
func (h *HeatpumpHandler) ListHeatpumps(c *gin.Context) {
	statuses, err := h.statusService.Overview(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build overview", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list heat pumps", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Heat pumps retrieved", gin.H{
		"heatpumps": statuses,
		"count":     len(statuses),
	})
}

// GetHeatpump returns one heat pump with its latest metrics
func (h *HeatpumpHandler) GetHeatpump(c *gin.Context) {
	id := c.Param("heatpump_id")

	device, err := h.configService.Get(id)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Heat pump not found", err)
		return
	}

	metrics, lastSeen, err := h.statusService.LatestMetrics(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to query metrics",
			zap.String("heat_pump_id", id),
			zap.Error(err),
		)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to query metrics", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Heat pump retrieved", gin.H{
		"heatpump":  device,
		"metrics":   metrics,
		"last_seen": lastSeen,
	})
}

// CreateHeatpump adds a heat pump to the configuration
func (h *HeatpumpHandler) CreateHeatpump(c *gin.Context) {
	var device model.DeviceDescriptor
	if err := c.ShouldBindJSON(&device); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.configService.Create(device); err != nil {
		if errors.Is(err, service.ErrDeviceExists) {
			utils.ErrorResponse(c, http.StatusConflict, "Heat pump already exists", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to add heat pump", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Heat pump added", device)
}

// UpdateHeatpump replaces a heat pump configuration
func (h *HeatpumpHandler) UpdateHeatpump(c *gin.Context) {
	id := c.Param("heatpump_id")

	var device model.DeviceDescriptor
	if err := c.ShouldBindJSON(&device); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.configService.Update(id, device); err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Heat pump not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to update heat pump", err)
		return
	}

	device.ID = id
	utils.SuccessResponse(c, http.StatusOK, "Heat pump updated", device)
}

// DeleteHeatpump removes a heat pump from the configuration
func (h *HeatpumpHandler) DeleteHeatpump(c *gin.Context) {
	id := c.Param("heatpump_id")

	if err := h.configService.Delete(id); err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Heat pump not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to remove heat pump", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Heat pump removed", gin.H{"id": id})
}

// GetCOP returns the coefficient of performance of one heat pump
func (h *HeatpumpHandler) GetCOP(c *gin.Context) {
	id := c.Param("heatpump_id")

	cop, err := h.statusService.COP(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Heat pump not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute COP", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "COP retrieved", gin.H{
		"heat_pump_id": id,
		"cop":          cop,
	})
}

// ListModels returns the known device models and their register maps
func (h *HeatpumpHandler) ListModels(c *gin.Context) {
	models := h.configService.Models()
	utils.SuccessResponse(c, http.StatusOK, "Models retrieved", gin.H{
		"models": models,
		"count":  len(models),
	})
}

// GetModelRegisters returns the register map of one model
func (h *HeatpumpHandler) GetModelRegisters(c *gin.Context) {
	name := c.Param("model")

	registers, err := h.configService.Registers(name)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Model not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Registers retrieved", gin.H{
		"model":     name,
		"registers": registers,
	})
}

package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
)

// StatsHandler 统计 HTTP 处理器
type StatsHandler struct {
	statsSvc service.StatsService
}

// NewStatsHandler 创建 StatsHandler
func NewStatsHandler(statsSvc service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

// Global 全局统计（仅管理员）
// GET /api/v1/stats/global
func (h *StatsHandler) Global(c *gin.Context) {
	result, err := h.statsSvc.Global(c.Request.Context())
	if err != nil {
		h.handleStatsError(c, err)
		return
	}
	response.OK(c, result)
}

// RoomPeriod 接待厅时间段签到统计
// GET /api/v1/stats/rooms/:id?from=2026-03-01&to=2026-03-31
func (h *StatsHandler) RoomPeriod(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.RoomPeriodStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.statsSvc.RoomPeriod(c.Request.Context(), p, c.Param("id"), &req)
	if err != nil {
		h.handleStatsError(c, err)
		return
	}
	response.OK(c, result)
}

// Hostess 接待员签到统计
// GET /api/v1/stats/hostesses/:id
func (h *StatsHandler) Hostess(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	result, err := h.statsSvc.Hostess(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		h.handleStatsError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *StatsHandler) handleStatsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "Non autorizzato a vedere queste statistiche")
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 12001, "Sala non trovata")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11005, "Utente non trovato")
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 15001, "Intervallo di date non valido")
	default:
		response.InternalError(c)
	}
}

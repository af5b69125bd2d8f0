package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
)

// AuditHandler 审计日志 HTTP 处理器（仅管理员）
type AuditHandler struct {
	auditSvc service.AuditService
}

// NewAuditHandler 创建 AuditHandler
func NewAuditHandler(auditSvc service.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// ListAuditLogs 审计日志查询
// GET /api/v1/audit-logs?guest_id=&user_id=&action=&since=&until=&limit=
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	var req dto.AuditLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.auditSvc.List(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeRange) {
			response.BadRequest(c, 15001, "Formato data non valido: usare YYYY-MM-DD o RFC3339")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

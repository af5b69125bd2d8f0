package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
)

// EmailHandler 邮件通知 HTTP 处理器
type EmailHandler struct {
	emailSvc   service.EmailService
	reportSvc  service.ReportService
	dispatcher service.NotificationDispatcher
	loc        *time.Location
}

// NewEmailHandler 创建 EmailHandler
func NewEmailHandler(emailSvc service.EmailService, reportSvc service.ReportService, dispatcher service.NotificationDispatcher, loc *time.Location) *EmailHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &EmailHandler{emailSvc: emailSvc, reportSvc: reportSvc, dispatcher: dispatcher, loc: loc}
}

// ListNotifications 通知列表（仅管理员）
// GET /api/v1/email/notifications?status=dead&type=&limit=
func (h *EmailHandler) ListNotifications(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.emailSvc.GetNotifications(c.Request.Context(), &req)
	if err != nil {
		h.handleEmailError(c, err)
		return
	}
	response.OK(c, result)
}

// Stats 投递统计（仅管理员）
// GET /api/v1/email/stats?days=7
func (h *EmailHandler) Stats(c *gin.Context) {
	var req dto.EmailStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	if req.Days == 0 {
		req.Days = 7
	}
	result, err := h.emailSvc.GetEmailStats(c.Request.Context(), req.Days)
	if err != nil {
		h.handleEmailError(c, err)
		return
	}
	response.OK(c, result)
}

// GetPreferences 当前用户的通知偏好
// GET /api/v1/email/preferences
func (h *EmailHandler) GetPreferences(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	result, err := h.emailSvc.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		h.handleEmailError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdatePreferences 更新当前用户的通知偏好
// PUT /api/v1/email/preferences
func (h *EmailHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateEmailPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.emailSvc.UpdatePreferences(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleEmailError(c, err)
		return
	}
	response.OK(c, result)
}

// SendTest 发送测试邮件（仅管理员）
// POST /api/v1/email/test
func (h *EmailHandler) SendTest(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.SendTestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	ok = h.emailSvc.SendTestNotification(c.Request.Context(), req.Recipient, &userID)
	response.OK(c, dto.SendTestEmailResponse{Success: ok})
}

// DailyReport 立即发送今日报告（仅管理员）
// POST /api/v1/email/daily-report
func (h *EmailHandler) DailyReport(c *gin.Context) {
	result, err := h.reportSvc.SendDailyReport(c.Request.Context(), time.Now().In(h.loc))
	if err != nil {
		h.handleEmailError(c, err)
		return
	}
	response.OK(c, result)
}

// CheckInNotification 手动补发签到通知（仅管理员）
// POST /api/v1/email/check-in-notification
func (h *EmailHandler) CheckInNotification(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.CheckInNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.emailSvc.ResendCheckInNotification(c.Request.Context(), req.GuestID, &userID)
	if err != nil {
		h.handleEmailError(c, err)
		return
	}
	response.OK(c, result)
}

// SystemAlert 发送系统告警（仅管理员）
// POST /api/v1/email/system-alert
func (h *EmailHandler) SystemAlert(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.SystemAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.emailSvc.SendSystemAlert(c.Request.Context(), &req, &userID)
	if err != nil {
		h.handleEmailError(c, err)
		return
	}
	response.OK(c, result)
}

// ProcessPending 手动补发待投递通知（仅管理员）
// POST /api/v1/email/process-pending
func (h *EmailHandler) ProcessPending(c *gin.Context) {
	result, err := h.dispatcher.ProcessPending(c.Request.Context())
	if err != nil {
		h.handleEmailError(c, err)
		return
	}
	response.OK(c, result)
}

// Cleanup 清理过期通知（仅管理员）
// POST /api/v1/email/cleanup?days=90
func (h *EmailHandler) Cleanup(c *gin.Context) {
	days := 0
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.BadRequest(c, 10001, "days deve essere un intero positivo")
			return
		}
		days = n
	}
	result, err := h.emailSvc.Cleanup(c.Request.Context(), days)
	if err != nil {
		h.handleEmailError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *EmailHandler) handleEmailError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQuietHours):
		response.BadRequest(c, 17001, "Formato delle ore di silenzio non valido: usare HH:MM")
	case errors.Is(err, service.ErrInvalidFrequency):
		response.BadRequest(c, 17002, "Frequenza email non valida")
	case errors.Is(err, service.ErrGuestNotFound):
		response.NotFound(c, 17003, "Ospite non trovato")
	default:
		response.InternalError(c)
	}
}

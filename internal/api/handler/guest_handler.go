package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
)

// GuestHandler 宾客模块 HTTP 处理器
type GuestHandler struct {
	guestSvc   service.GuestService
	checkInSvc service.CheckInService
}

// NewGuestHandler 创建 GuestHandler
func NewGuestHandler(guestSvc service.GuestService, checkInSvc service.CheckInService) *GuestHandler {
	return &GuestHandler{guestSvc: guestSvc, checkInSvc: checkInSvc}
}

// ListGuests 宾客列表
// GET /api/v1/guests?room_id=xxx&checked_in=true
func (h *GuestHandler) ListGuests(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.GuestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.guestSvc.List(c.Request.Context(), p, &req)
	if err != nil {
		h.handleGuestError(c, err)
		return
	}
	response.OK(c, result)
}

// SearchGuests 按姓名搜索宾客
// GET /api/v1/guests/search?q=xxx&room_id=xxx
func (h *GuestHandler) SearchGuests(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.GuestSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.guestSvc.Search(c.Request.Context(), p, &req)
	if err != nil {
		h.handleGuestError(c, err)
		return
	}
	response.OK(c, result)
}

// GetGuest 宾客详情
// GET /api/v1/guests/:id
func (h *GuestHandler) GetGuest(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	result, err := h.guestSvc.GetByID(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		h.handleGuestError(c, err)
		return
	}
	response.OK(c, result)
}

// CreateGuest 新增宾客
// POST /api/v1/guests
func (h *GuestHandler) CreateGuest(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.CreateGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.guestSvc.Create(c.Request.Context(), p, &req)
	if err != nil {
		h.handleGuestError(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateGuest 更新宾客
// PUT /api/v1/guests/:id
func (h *GuestHandler) UpdateGuest(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.UpdateGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.guestSvc.Update(c.Request.Context(), p, c.Param("id"), &req)
	if err != nil {
		h.handleGuestError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteGuest 删除宾客
// DELETE /api/v1/guests/:id
func (h *GuestHandler) DeleteGuest(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	if err := h.guestSvc.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		h.handleGuestError(c, err)
		return
	}
	response.OK(c, nil)
}

// notifyRequested ?notify=false 时跳过邮件通知，默认通知
func notifyRequested(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.DefaultQuery("notify", "true"))
	return err != nil || v
}

// CheckIn 宾客签到
// POST /api/v1/guests/:id/check-in?notify=false
func (h *GuestHandler) CheckIn(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var (
		result *dto.GuestResponse
		err    error
	)
	if notifyRequested(c) {
		result, err = h.checkInSvc.CheckInWithNotification(c.Request.Context(), p, c.Param("id"))
	} else {
		result, err = h.guestSvc.CheckIn(c.Request.Context(), p, c.Param("id"))
	}
	if err != nil {
		h.handleGuestError(c, err)
		return
	}
	response.OK(c, result)
}

// CheckOut 宾客签退
// POST /api/v1/guests/:id/check-out?notify=false
func (h *GuestHandler) CheckOut(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var (
		result *dto.GuestResponse
		err    error
	)
	if notifyRequested(c) {
		result, err = h.checkInSvc.CheckOutWithNotification(c.Request.Context(), p, c.Param("id"))
	} else {
		result, err = h.guestSvc.CheckOut(c.Request.Context(), p, c.Param("id"))
	}
	if err != nil {
		h.handleGuestError(c, err)
		return
	}
	response.OK(c, result)
}

// GetAuditLog 宾客审计记录
// GET /api/v1/guests/:id/audit
func (h *GuestHandler) GetAuditLog(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	result, err := h.guestSvc.AuditLog(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		h.handleGuestError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *GuestHandler) handleGuestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "Non autorizzato a operare sugli ospiti di questa sala")
	case errors.Is(err, service.ErrGuestNotFound):
		response.NotFound(c, 13001, "Ospite non trovato")
	case errors.Is(err, service.ErrGuestRoomMissing):
		response.NotFound(c, 13002, "La sala dell'ospite non esiste più")
	case errors.Is(err, service.ErrRoomNotFound):
		response.BadRequest(c, 13003, "Sala non trovata")
	default:
		response.InternalError(c)
	}
}

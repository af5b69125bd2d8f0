package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
)

// ProfileHandler 接待员管理 HTTP 处理器（仅管理员）
type ProfileHandler struct {
	profileSvc service.ProfileService
}

// NewProfileHandler 创建 ProfileHandler
func NewProfileHandler(profileSvc service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// ListProfiles 用户列表
// GET /api/v1/profiles?role=hostess
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	var req dto.ProfileListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.profileSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateProfile 修改姓名或角色
// PUT /api/v1/profiles/:id
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.profileSvc.Update(c.Request.Context(), p, c.Param("id"), &req)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteProfile 删除账号
// DELETE /api/v1/profiles/:id
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	if err := h.profileSvc.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		h.handleProfileError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListRooms 接待员已分配的接待厅
// GET /api/v1/profiles/:id/rooms
func (h *ProfileHandler) ListRooms(c *gin.Context) {
	result, err := h.profileSvc.ListRooms(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleProfileError(c, err)
		return
	}
	response.OK(c, result)
}

// AssignRoom 分配接待厅
// PUT /api/v1/profiles/:id/rooms/:room_id
func (h *ProfileHandler) AssignRoom(c *gin.Context) {
	result, err := h.profileSvc.AssignRoom(c.Request.Context(), c.Param("id"), c.Param("room_id"))
	if err != nil {
		h.handleProfileError(c, err)
		return
	}
	response.OK(c, result)
}

// RemoveRoom 取消分配
// DELETE /api/v1/profiles/:id/rooms/:room_id
func (h *ProfileHandler) RemoveRoom(c *gin.Context) {
	result, err := h.profileSvc.RemoveRoom(c.Request.Context(), c.Param("id"), c.Param("room_id"))
	if err != nil {
		h.handleProfileError(c, err)
		return
	}
	response.OK(c, result)
}

// ToggleRoom 切换分配状态
// POST /api/v1/profiles/:id/rooms/:room_id/toggle
func (h *ProfileHandler) ToggleRoom(c *gin.Context) {
	result, err := h.profileSvc.ToggleRoom(c.Request.Context(), c.Param("id"), c.Param("room_id"))
	if err != nil {
		h.handleProfileError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ProfileHandler) handleProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 14001, "Utente non trovato")
	case errors.Is(err, service.ErrCannotDeleteSelf):
		response.BadRequest(c, 14002, "Non puoi eliminare il tuo account")
	case errors.Is(err, service.ErrCannotDemoteSelf):
		response.BadRequest(c, 14003, "Non puoi modificare il tuo ruolo")
	case errors.Is(err, service.ErrNotHostess):
		response.BadRequest(c, 14004, "Solo le hostess possono essere assegnate alle sale")
	case errors.Is(err, service.ErrLastAdministrator):
		response.Conflict(c, 14005, "Deve restare almeno un amministratore")
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 14006, "Sala non trovata")
	default:
		response.InternalError(c)
	}
}

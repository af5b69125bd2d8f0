package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/realtime"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
)

// sseHeartbeat SSE 心跳间隔，防止代理断开空闲连接
const sseHeartbeat = 25 * time.Second

// RoomHandler 接待厅模块 HTTP 处理器
type RoomHandler struct {
	roomSvc service.RoomService
	hub     *realtime.Hub
}

// NewRoomHandler 创建 RoomHandler，hub 为 nil 时实时推送不可用
func NewRoomHandler(roomSvc service.RoomService, hub *realtime.Hub) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc, hub: hub}
}

// ListRooms 接待厅列表（接待员仅返回已分配）
// GET /api/v1/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	result, err := h.roomSvc.List(c.Request.Context(), p)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.OK(c, result)
}

// GetRoom 接待厅详情
// GET /api/v1/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	result, err := h.roomSvc.GetByID(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.OK(c, result)
}

// CreateRoom 新建接待厅
// POST /api/v1/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.roomSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateRoom 重命名接待厅
// PUT /api/v1/rooms/:id
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}
	result, err := h.roomSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteRoom 删除接待厅及其全部宾客
// DELETE /api/v1/rooms/:id
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	result, err := h.roomSvc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.OK(c, result)
}

// GetRoomStats 接待厅签到统计
// GET /api/v1/rooms/:id/stats
func (h *RoomHandler) GetRoomStats(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	result, err := h.roomSvc.Stats(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.OK(c, result)
}

// StreamGuests 以 SSE 推送接待厅内的宾客变更，客户端断开时取消订阅
// GET /api/v1/rooms/:id/guests/stream
func (h *RoomHandler) StreamGuests(c *gin.Context) {
	if h.hub == nil {
		response.ServiceUnavailable(c, 12101, "Aggiornamenti in tempo reale non attivi")
		return
	}
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	roomID := c.Param("id")
	// 复用 GetByID 的接待厅范围校验
	if _, err := h.roomSvc.GetByID(c.Request.Context(), p, roomID); err != nil {
		h.handleRoomError(c, err)
		return
	}

	sub := h.hub.Subscribe(roomID)
	defer sub.Close()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"room_id": roomID})

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case evt, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent("guest_change", evt)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

func (h *RoomHandler) handleRoomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "Accesso alla sala non autorizzato")
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 12001, "Sala non trovata")
	case errors.Is(err, service.ErrRoomNameExists):
		response.Conflict(c, 12002, "Esiste già una sala con questo nome")
	default:
		response.InternalError(c)
	}
}

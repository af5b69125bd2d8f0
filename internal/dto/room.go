package dto

// ── 接待厅模块 DTO ──

// CreateRoomRequest 创建接待厅
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// UpdateRoomRequest 重命名接待厅
type UpdateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// RoomResponse 接待厅
type RoomResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RoomStatsResponse get_room_stats 结果
type RoomStatsResponse struct {
	RoomID      string  `json:"room_id"`
	TotalGuests int64   `json:"total_guests"`
	CheckedIn   int64   `json:"checked_in"`
	Pending     int64   `json:"pending"`
	CheckInRate float64 `json:"check_in_rate"` // 百分比，保留一位小数
}

// DeleteRoomResponse 删除接待厅（连带删除宾客数）
type DeleteRoomResponse struct {
	DeletedGuests int64 `json:"deleted_guests"`
}

package dto

// ── 宾客模块 DTO ──

// GuestListRequest 宾客列表筛选
type GuestListRequest struct {
	RoomID    string `form:"room_id"    binding:"omitempty,uuid"`
	CheckedIn *bool  `form:"checked_in"`
}

// GuestSearchRequest 宾客搜索
type GuestSearchRequest struct {
	Q      string `form:"q"       binding:"max=100"`
	RoomID string `form:"room_id" binding:"omitempty,uuid"`
}

// CreateGuestRequest 新增宾客
type CreateGuestRequest struct {
	RoomID      string  `json:"room_id"      binding:"required,uuid"`
	FirstName   string  `json:"first_name"   binding:"required,min=1,max=100"`
	LastName    string  `json:"last_name"    binding:"required,min=1,max=100"`
	TableNumber *string `json:"table_number" binding:"omitempty,max=20"`
	SeatNumber  *string `json:"seat_number"  binding:"omitempty,max=20"`
}

// UpdateGuestRequest 更新宾客（部分更新，不含签到字段）
type UpdateGuestRequest struct {
	RoomID      *string `json:"room_id"      binding:"omitempty,uuid"`
	FirstName   *string `json:"first_name"   binding:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name"    binding:"omitempty,min=1,max=100"`
	TableNumber *string `json:"table_number" binding:"omitempty,max=20"`
	SeatNumber  *string `json:"seat_number"  binding:"omitempty,max=20"`
}

// GuestResponse 宾客
type GuestResponse struct {
	ID              string  `json:"id"`
	RoomID          string  `json:"room_id"`
	RoomName        string  `json:"room_name,omitempty"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	TableNumber     *string `json:"table_number"`
	SeatNumber      *string `json:"seat_number"`
	CheckedIn       bool    `json:"checked_in"`
	CheckedInAt     *string `json:"checked_in_at"`
	CheckedInBy     *string `json:"checked_in_by"`
	CheckedInByName string  `json:"checked_in_by_name,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

package dto

// ── 接待员管理 DTO ──

// ProfileListRequest 用户列表筛选
type ProfileListRequest struct {
	Role string `form:"role" binding:"omitempty,oneof=admin hostess"`
}

// UpdateProfileRequest 更新用户档案（部分更新）
type UpdateProfileRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,min=1,max=100"`
	Role     *string `json:"role"      binding:"omitempty,oneof=admin hostess"`
}

// RoomAssignmentResponse 接待厅分配开关结果
type RoomAssignmentResponse struct {
	UserID   string `json:"user_id"`
	RoomID   string `json:"room_id"`
	Assigned bool   `json:"assigned"`
}

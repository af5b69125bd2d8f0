package dto

// ── 审计日志 DTO ──

// AuditLogListRequest 审计日志筛选，时间为 RFC3339
type AuditLogListRequest struct {
	GuestID string `form:"guest_id" binding:"omitempty,uuid"`
	UserID  string `form:"user_id"  binding:"omitempty,uuid"`
	Action  string `form:"action"   binding:"omitempty,oneof=check_in check_out create update delete"`
	Since   string `form:"since"`
	Until   string `form:"until"`
	Limit   int    `form:"limit"    binding:"omitempty,min=1,max=500"`
}

// AuditLogResponse 审计日志
type AuditLogResponse struct {
	ID        string                 `json:"id"`
	GuestID   *string                `json:"guest_id"`
	UserID    *string                `json:"user_id"`
	Action    string                 `json:"action"`
	OldData   map[string]interface{} `json:"old_data,omitempty"`
	NewData   map[string]interface{} `json:"new_data,omitempty"`
	CreatedAt string                 `json:"created_at"`
}

package dto

// ── 统计模块 DTO ──

// GlobalStatsResponse 仪表盘全局统计
type GlobalStatsResponse struct {
	TotalGuests     int64 `json:"total_guests"`
	CheckedInGuests int64 `json:"checked_in_guests"`
	PendingGuests   int64 `json:"pending_guests"`
	TotalRooms      int64 `json:"total_rooms"`
	TotalHostesses  int64 `json:"total_hostesses"`
}

// RoomPeriodStatsRequest 按时间段统计，日期为 YYYY-MM-DD 或 RFC3339
type RoomPeriodStatsRequest struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to"   binding:"required"`
}

// RoomPeriodStatsResponse 某接待厅时间段内的签到
type RoomPeriodStatsResponse struct {
	RoomID    string   `json:"room_id"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	CheckedIn int      `json:"checked_in"`
	Times     []string `json:"check_in_times"`
}

// HostessStatsResponse 接待员绩效
type HostessStatsResponse struct {
	HostessID      string             `json:"hostess_id"`
	TotalCheckIns  int64              `json:"total_check_ins"`
	RecentActivity []AuditLogResponse `json:"recent_activity"`
}

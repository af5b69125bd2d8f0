package dto

// ── 邮件通知 DTO ──

// NotificationListRequest 通知列表筛选
type NotificationListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending sent failed scheduled dead"`
	Type   string `form:"type"   binding:"omitempty,oneof=guest_check_in guest_check_out daily_report system_alert"`
	Limit  int    `form:"limit"  binding:"omitempty,min=1,max=500"`
}

// NotificationResponse 邮件通知
type NotificationResponse struct {
	ID            string                 `json:"id"`
	Recipient     string                 `json:"recipient"`
	RecipientName *string                `json:"recipient_name"`
	Type          string                 `json:"type"`
	Subject       string                 `json:"subject"`
	Content       string                 `json:"content"`
	Priority      string                 `json:"priority"`
	Status        string                 `json:"status"`
	Metadata      map[string]interface{} `json:"metadata"`
	Attempts      int                    `json:"attempts"`
	LastError     *string                `json:"last_error"`
	SentAt        *string                `json:"sent_at"`
	CreatedAt     string                 `json:"created_at"`
	CreatedBy     *string                `json:"created_by"`
}

// EmailStatsRequest 统计窗口（天）
type EmailStatsRequest struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

// DailyActivity 按日投递统计
type DailyActivity struct {
	Date   string `json:"date"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
}

// EmailStatsResponse 邮件统计
type EmailStatsResponse struct {
	TotalSent      int             `json:"total_sent"`
	TotalFailed    int             `json:"total_failed"`
	TotalPending   int             `json:"total_pending"`
	TotalDead      int             `json:"total_dead"`
	SuccessRate    float64         `json:"success_rate"`
	ByType         map[string]int  `json:"by_type"`
	ByStatus       map[string]int  `json:"by_status"`
	RecentActivity []DailyActivity `json:"recent_activity"`
}

// EmailPreferenceResponse 邮件偏好
type EmailPreferenceResponse struct {
	UserID                       string  `json:"user_id"`
	ReceiveCheckInNotifications  bool    `json:"receive_check_in_notifications"`
	ReceiveCheckOutNotifications bool    `json:"receive_check_out_notifications"`
	ReceiveDailyReports          bool    `json:"receive_daily_reports"`
	ReceiveSystemAlerts          bool    `json:"receive_system_alerts"`
	EmailFrequency               string  `json:"email_frequency"`
	QuietHoursStart              *string `json:"quiet_hours_start"`
	QuietHoursEnd                *string `json:"quiet_hours_end"`
	UpdatedAt                    string  `json:"updated_at,omitempty"`
}

// UpdateEmailPreferenceRequest 更新邮件偏好（部分更新）
type UpdateEmailPreferenceRequest struct {
	ReceiveCheckInNotifications  *bool   `json:"receive_check_in_notifications"`
	ReceiveCheckOutNotifications *bool   `json:"receive_check_out_notifications"`
	ReceiveDailyReports          *bool   `json:"receive_daily_reports"`
	ReceiveSystemAlerts          *bool   `json:"receive_system_alerts"`
	EmailFrequency               *string `json:"email_frequency"   binding:"omitempty,oneof=real_time hourly daily disabled"`
	QuietHoursStart              *string `json:"quiet_hours_start"`
	QuietHoursEnd                *string `json:"quiet_hours_end"`
}

// SendTestEmailRequest 测试邮件
type SendTestEmailRequest struct {
	Recipient string `json:"recipient" binding:"required,email"`
}

// SendTestEmailResponse 测试邮件结果
type SendTestEmailResponse struct {
	Success bool `json:"success"`
}

// CheckInNotificationRequest 手动补发签到通知
type CheckInNotificationRequest struct {
	GuestID string `json:"guest_id" binding:"required,uuid"`
}

// SystemAlertRequest 系统告警，details 为 Markdown
type SystemAlertRequest struct {
	AlertType string `json:"alert_type" binding:"required,max=100"`
	Message   string `json:"message"    binding:"required,max=1000"`
	Details   string `json:"details"    binding:"max=10000"`
}

// BatchSendResponse 批量发送结果（允许部分失败）
type BatchSendResponse struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Deferred   int `json:"deferred"` // 处于免打扰时段，已排队延后发送
}

// ProcessPendingResponse 补发结果
type ProcessPendingResponse struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Retrying  int `json:"retrying"`
	Dead      int `json:"dead"`
	Skipped   int `json:"skipped"`
}

// CleanupResponse 清理结果
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

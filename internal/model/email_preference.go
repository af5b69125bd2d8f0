package model

// ── 邮件频率 ──

const (
	FrequencyRealTime = "real_time"
	FrequencyHourly   = "hourly"
	FrequencyDaily    = "daily"
	FrequencyDisabled = "disabled"
)

// EmailPreference 邮件偏好表，对应 email_preferences（与 profiles 1:1，按 user_id upsert）
type EmailPreference struct {
	ID                           string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID                       string  `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	ReceiveCheckInNotifications  bool    `gorm:"not null;default:true"                          json:"receive_check_in_notifications"`
	ReceiveCheckOutNotifications bool    `gorm:"not null;default:true"                          json:"receive_check_out_notifications"`
	ReceiveDailyReports          bool    `gorm:"not null;default:true"                          json:"receive_daily_reports"`
	ReceiveSystemAlerts          bool    `gorm:"not null;default:true"                          json:"receive_system_alerts"`
	EmailFrequency               string  `gorm:"type:varchar(20);not null;default:'real_time'"  json:"email_frequency"`
	QuietHoursStart              *string `gorm:"type:varchar(5)"                                json:"quiet_hours_start,omitempty"` // HH:MM
	QuietHoursEnd                *string `gorm:"type:varchar(5)"                                json:"quiet_hours_end,omitempty"`
	BaseModel
}

// TableName 指定表名
func (EmailPreference) TableName() string { return "email_preferences" }

// DefaultEmailPreference 未保存过偏好的用户使用的默认值
func DefaultEmailPreference(userID string) *EmailPreference {
	return &EmailPreference{
		UserID:                       userID,
		ReceiveCheckInNotifications:  true,
		ReceiveCheckOutNotifications: true,
		ReceiveDailyReports:          true,
		ReceiveSystemAlerts:          true,
		EmailFrequency:               FrequencyRealTime,
	}
}

// Recipient resolve_notification_recipients 存储过程返回行
type Recipient struct {
	UserID          string  `gorm:"column:recipient_id"`
	Email           string  `gorm:"column:recipient_email"`
	FullName        string  `gorm:"column:recipient_name"`
	EmailFrequency  string  `gorm:"column:frequency"`
	QuietHoursStart *string `gorm:"column:quiet_start"`
	QuietHoursEnd   *string `gorm:"column:quiet_end"`
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

// ── 通知类型 ──

const (
	NotificationTypeGuestCheckIn  = "guest_check_in"
	NotificationTypeGuestCheckOut = "guest_check_out"
	NotificationTypeDailyReport   = "daily_report"
	NotificationTypeSystemAlert   = "system_alert"
)

// ValidNotificationType 判断通知类型是否合法
func ValidNotificationType(t string) bool {
	switch t {
	case NotificationTypeGuestCheckIn, NotificationTypeGuestCheckOut,
		NotificationTypeDailyReport, NotificationTypeSystemAlert:
		return true
	}
	return false
}

// ── 优先级 ──

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ── 投递状态 ──
// 状态只会从 pending 迁出：pending → sent | failed | dead
// dead 表示重试次数耗尽

const (
	NotificationStatusPending   = "pending"
	NotificationStatusSent      = "sent"
	NotificationStatusFailed    = "failed"
	NotificationStatusScheduled = "scheduled"
	NotificationStatusDead      = "dead"
)

// EmailNotification 邮件通知表，对应 email_notifications（兼作发件箱）
type EmailNotification struct {
	ID            string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Recipient     string            `gorm:"type:varchar(255);not null"                     json:"recipient"`
	RecipientName *string           `gorm:"type:varchar(100)"                              json:"recipient_name,omitempty"`
	Type          string            `gorm:"type:varchar(30);not null"                      json:"type"`
	Subject       string            `gorm:"type:varchar(255);not null"                     json:"subject"`
	Content       string            `gorm:"type:text;not null"                             json:"content"`
	Priority      string            `gorm:"type:varchar(10);not null;default:'medium'"     json:"priority"`
	Status        string            `gorm:"type:varchar(10);not null;default:'pending'"    json:"status"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"               json:"metadata"`
	Attempts      int               `gorm:"not null;default:0"                             json:"attempts"`
	MaxAttempts   int               `gorm:"not null;default:5"                             json:"max_attempts"`
	NextAttemptAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"next_attempt_at"`
	LastError     *string           `gorm:"type:text"                                      json:"last_error,omitempty"`
	ScheduledFor  *time.Time        `json:"scheduled_for,omitempty"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	CreatedBy     *string           `gorm:"type:uuid"                                      json:"created_by,omitempty"`
}

// TableName 指定表名
func (EmailNotification) TableName() string { return "email_notifications" }

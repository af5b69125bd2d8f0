package model

import (
	"time"

	"gorm.io/datatypes"
)

// ── 审计动作 ──

const (
	AuditActionCheckIn  = "check_in"
	AuditActionCheckOut = "check_out"
	AuditActionCreate   = "create"
	AuditActionUpdate   = "update"
	AuditActionDelete   = "delete"
)

// AuditLog 审计日志表，对应 audit_log（只追加）
// guest_id 不设外键，宾客删除后历史仍保留
type AuditLog struct {
	ID        string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	GuestID   *string           `gorm:"type:uuid"                                      json:"guest_id,omitempty"`
	UserID    *string           `gorm:"type:uuid"                                      json:"user_id,omitempty"`
	Action    string            `gorm:"type:varchar(20);not null"                      json:"action"`
	OldData   datatypes.JSONMap `gorm:"type:jsonb"                                     json:"old_data,omitempty"`
	NewData   datatypes.JSONMap `gorm:"type:jsonb"                                     json:"new_data,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	User *Profile `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName 指定表名
func (AuditLog) TableName() string { return "audit_log" }

// ActivityRow 日报使用的审计联表行（audit_log ⟕ guests ⟕ rooms ⟕ profiles）
// 关联缺失时对应字段为 nil，由调用方决定降级文案
type ActivityRow struct {
	Action       string    `gorm:"column:action"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	GuestID      *string   `gorm:"column:guest_id"`
	GuestName    *string   `gorm:"column:guest_name"`
	RoomName     *string   `gorm:"column:room_name"`
	UserID       *string   `gorm:"column:user_id"`
	UserFullName *string   `gorm:"column:user_full_name"`
}

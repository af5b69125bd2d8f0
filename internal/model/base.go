package model

import "time"

// BaseModel 通用时间字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ── 角色 ──

const (
	RoleAdmin   = "admin"
	RoleHostess = "hostess"
)

// ValidRole 判断角色取值是否合法
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleHostess
}

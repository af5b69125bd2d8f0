package model

import "time"

// UserRoom 接待员-接待厅分配关系，对应 user_rooms（复合主键）
type UserRoom struct {
	UserID    string    `gorm:"type:uuid;primaryKey"                  json:"user_id"`
	RoomID    string    `gorm:"type:uuid;primaryKey"                  json:"room_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"    json:"created_at"`

	// 关联
	Room *Room `gorm:"foreignKey:RoomID;references:ID" json:"room,omitempty"`
}

// TableName 指定表名
func (UserRoom) TableName() string { return "user_rooms" }

package model

import "time"

// Guest 宾客表，对应 guests
// checked_in / checked_in_at / checked_in_by 三者同时有值或同时为空（数据库 CHECK 约束保证）
type Guest struct {
	ID          string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RoomID      string     `gorm:"type:uuid;not null"                             json:"room_id"`
	FirstName   string     `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName    string     `gorm:"type:varchar(100);not null"                     json:"last_name"`
	TableNumber *string    `gorm:"type:varchar(20)"                               json:"table_number,omitempty"`
	SeatNumber  *string    `gorm:"type:varchar(20)"                               json:"seat_number,omitempty"`
	CheckedIn   bool       `gorm:"not null;default:false"                         json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy *string    `gorm:"type:uuid"                                      json:"checked_in_by,omitempty"`
	BaseModel

	// 关联
	Room          *Room    `gorm:"foreignKey:RoomID;references:ID"      json:"room,omitempty"`
	CheckedInUser *Profile `gorm:"foreignKey:CheckedInBy;references:ID" json:"checked_in_user,omitempty"`
}

// TableName 指定表名
func (Guest) TableName() string { return "guests" }

// FullName 名 + 姓
func (g *Guest) FullName() string {
	return g.FirstName + " " + g.LastName
}

// Snapshot 生成审计快照（写入 audit_log 的 old_data / new_data）
func (g *Guest) Snapshot() map[string]interface{} {
	snap := map[string]interface{}{
		"id":            g.ID,
		"room_id":       g.RoomID,
		"first_name":    g.FirstName,
		"last_name":     g.LastName,
		"table_number":  g.TableNumber,
		"seat_number":   g.SeatNumber,
		"checked_in":    g.CheckedIn,
		"checked_in_at": nil,
		"checked_in_by": g.CheckedInBy,
	}
	if g.CheckedInAt != nil {
		snap["checked_in_at"] = g.CheckedInAt.UTC().Format(time.RFC3339)
	}
	return snap
}

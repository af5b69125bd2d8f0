package model

// Room 接待厅表，对应 rooms，名称大小写不敏感唯一
type Room struct {
	ID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }

// RoomStats get_room_stats 存储过程返回行
type RoomStats struct {
	TotalGuests int64 `gorm:"column:total_guests" json:"total_guests"`
	CheckedIn   int64 `gorm:"column:checked_in"   json:"checked_in"`
	Pending     int64 `gorm:"column:pending"      json:"pending"`
}

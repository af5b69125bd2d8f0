package model

// Profile 用户档案表，对应 profiles，角色为 admin 或 hostess
type Profile struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	FullName     string `gorm:"type:varchar(100);not null;default:''"          json:"full_name"`
	Role         string `gorm:"type:varchar(20);not null;default:'hostess'"    json:"role"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	BaseModel
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }

// DisplayName 优先返回姓名，为空时退回邮箱
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

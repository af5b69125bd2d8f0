package model

import (
	"time"

	"gorm.io/datatypes"
)

// ImportHistory 导入历史表，对应 import_history（只写一次）
// successful_rows + failed_rows = total_rows
type ImportHistory struct {
	ID             string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ImportedBy     *string                     `gorm:"type:uuid"                                      json:"imported_by,omitempty"`
	FileName       string                      `gorm:"type:varchar(255);not null"                     json:"file_name"`
	TotalRows      int                         `gorm:"not null;default:0"                             json:"total_rows"`
	SuccessfulRows int                         `gorm:"not null;default:0"                             json:"successful_rows"`
	FailedRows     int                         `gorm:"not null;default:0"                             json:"failed_rows"`
	Errors         datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"               json:"errors"`
	CreatedAt      time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Importer *Profile `gorm:"foreignKey:ImportedBy;references:ID" json:"importer,omitempty"`
}

// TableName 指定表名
func (ImportHistory) TableName() string { return "import_history" }

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

// ImportHistoryRepository 导入历史数据访问接口
type ImportHistoryRepository interface {
	Create(ctx context.Context, h *model.ImportHistory) error
	List(ctx context.Context, limit int) ([]model.ImportHistory, error)
}

type importHistoryRepo struct {
	db *gorm.DB
}

// NewImportHistoryRepo 创建 ImportHistoryRepository 实例
func NewImportHistoryRepo(db *gorm.DB) ImportHistoryRepository {
	return &importHistoryRepo{db: db}
}

func (r *importHistoryRepo) Create(ctx context.Context, h *model.ImportHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *importHistoryRepo) List(ctx context.Context, limit int) ([]model.ImportHistory, error) {
	var items []model.ImportHistory
	db := r.db.WithContext(ctx).Preload("Importer").Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&items).Error
	return items, err
}

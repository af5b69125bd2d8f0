package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

// EmailPreferenceRepository 邮件偏好数据访问接口
type EmailPreferenceRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.EmailPreference, error)
	Upsert(ctx context.Context, pref *model.EmailPreference) error
}

type emailPreferenceRepo struct {
	db *gorm.DB
}

// NewEmailPreferenceRepo 创建 EmailPreferenceRepository 实例
func NewEmailPreferenceRepo(db *gorm.DB) EmailPreferenceRepository {
	return &emailPreferenceRepo{db: db}
}

func (r *emailPreferenceRepo) GetByUserID(ctx context.Context, userID string) (*model.EmailPreference, error) {
	var pref model.EmailPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// Upsert 以 user_id 为冲突键插入或整行覆盖
func (r *emailPreferenceRepo) Upsert(ctx context.Context, pref *model.EmailPreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"receive_check_in_notifications",
				"receive_check_out_notifications",
				"receive_daily_reports",
				"receive_system_alerts",
				"email_frequency",
				"quiet_hours_start",
				"quiet_hours_end",
				"updated_at",
			}),
		}).
		Create(pref).Error
}

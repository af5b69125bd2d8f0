package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	pkgerrors "github.com/bitandsolution/stadium-hospitality-manager/pkg/errors"
)

// NotificationFilter 通知列表筛选条件
type NotificationFilter struct {
	Status string
	Type   string
	Limit  int
}

// EmailNotificationRepository 邮件通知（发件箱）数据访问接口
// 所有 Mark* 仅作用于 pending 行，否则返回 ErrInvalidTransition
type EmailNotificationRepository interface {
	Create(ctx context.Context, n *model.EmailNotification) error
	CreateBatch(ctx context.Context, items []model.EmailNotification) error
	GetByID(ctx context.Context, id string) (*model.EmailNotification, error)
	List(ctx context.Context, filter NotificationFilter) ([]model.EmailNotification, error)
	ListSince(ctx context.Context, since time.Time) ([]model.EmailNotification, error)
	ListDue(ctx context.Context, createdBefore time.Time, limit int) ([]model.EmailNotification, error)
	Claim(ctx context.Context, id string, lease time.Duration) (*model.EmailNotification, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
	MarkRetry(ctx context.Context, id string, reason string, next time.Time) error
	MarkDead(ctx context.Context, id string, reason string) error
	Cleanup(ctx context.Context, daysToKeep int) (int64, error)
}

type emailNotificationRepo struct {
	db *gorm.DB
}

// NewEmailNotificationRepo 创建 EmailNotificationRepository 实例
func NewEmailNotificationRepo(db *gorm.DB) EmailNotificationRepository {
	return &emailNotificationRepo{db: db}
}

func (r *emailNotificationRepo) Create(ctx context.Context, n *model.EmailNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *emailNotificationRepo) CreateBatch(ctx context.Context, items []model.EmailNotification) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *emailNotificationRepo) GetByID(ctx context.Context, id string) (*model.EmailNotification, error) {
	var n model.EmailNotification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *emailNotificationRepo) List(ctx context.Context, filter NotificationFilter) ([]model.EmailNotification, error) {
	var items []model.EmailNotification
	db := r.db.WithContext(ctx)
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	err := db.Order("created_at DESC").Find(&items).Error
	return items, err
}

func (r *emailNotificationRepo) ListSince(ctx context.Context, since time.Time) ([]model.EmailNotification, error) {
	var items []model.EmailNotification
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// ListDue 待补发：pending、创建早于 createdBefore、已到下次尝试时间
func (r *emailNotificationRepo) ListDue(ctx context.Context, createdBefore time.Time, limit int) ([]model.EmailNotification, error) {
	var items []model.EmailNotification
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND next_attempt_at <= NOW()", model.NotificationStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Claim 领取一行：attempts+1，并将 next_attempt_at 推迟 lease，防止其他实例同时投递
// 行不存在、已终结或未到期时返回 ErrInvalidTransition
func (r *emailNotificationRepo) Claim(ctx context.Context, id string, lease time.Duration) (*model.EmailNotification, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.EmailNotification{}).
		Where("id = ? AND status = ? AND next_attempt_at <= ?", id, model.NotificationStatusPending, now).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"next_attempt_at": now.Add(lease),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.ErrInvalidTransition
	}
	return r.GetByID(ctx, id)
}

func (r *emailNotificationRepo) MarkSent(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":     model.NotificationStatusSent,
		"sent_at":    at,
		"last_error": nil,
	})
}

func (r *emailNotificationRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":     model.NotificationStatusFailed,
		"last_error": reason,
	})
}

// MarkRetry 保持 pending，记录错误并设置下次尝试时间
func (r *emailNotificationRepo) MarkRetry(ctx context.Context, id string, reason string, next time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"last_error":      reason,
		"next_attempt_at": next,
	})
}

func (r *emailNotificationRepo) MarkDead(ctx context.Context, id string, reason string) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":     model.NotificationStatusDead,
		"last_error": reason,
	})
}

func (r *emailNotificationRepo) transition(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.EmailNotification{}).
		Where("id = ? AND status = ?", id, model.NotificationStatusPending).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrInvalidTransition
	}
	return nil
}

// Cleanup 调用 cleanup_old_email_notifications(days_to_keep)，返回删除行数
func (r *emailNotificationRepo) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).
		Raw("SELECT cleanup_old_email_notifications(?)", daysToKeep).
		Scan(&deleted).Error
	return deleted, err
}

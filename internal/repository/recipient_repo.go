package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

// RecipientRepository 通知收件人解析（存储过程）
type RecipientRepository interface {
	Resolve(ctx context.Context, eventType string) ([]model.Recipient, error)
	AdminEmails(ctx context.Context) ([]string, error)
}

type recipientRepo struct {
	db *gorm.DB
}

// NewRecipientRepo 创建 RecipientRepository 实例
func NewRecipientRepo(db *gorm.DB) RecipientRepository {
	return &recipientRepo{db: db}
}

// Resolve 调用 resolve_notification_recipients(event_type)
func (r *recipientRepo) Resolve(ctx context.Context, eventType string) ([]model.Recipient, error) {
	var recipients []model.Recipient
	err := r.db.WithContext(ctx).
		Raw("SELECT * FROM resolve_notification_recipients(?)", eventType).
		Scan(&recipients).Error
	return recipients, err
}

// AdminEmails 调用 get_admin_emails()
func (r *recipientRepo) AdminEmails(ctx context.Context) ([]string, error) {
	emails := []string{}
	err := r.db.WithContext(ctx).
		Raw("SELECT email FROM get_admin_emails()").
		Scan(&emails).Error
	return emails, err
}

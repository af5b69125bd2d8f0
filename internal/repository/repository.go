package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Room              RoomRepository
	Guest             GuestRepository
	Profile           ProfileRepository
	UserRoom          UserRoomRepository
	AuditLog          AuditLogRepository
	ImportHistory     ImportHistoryRepository
	EmailNotification EmailNotificationRepository
	EmailPreference   EmailPreferenceRepository
	Recipient         RecipientRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:                db,
		Room:              NewRoomRepo(db),
		Guest:             NewGuestRepo(db),
		Profile:           NewProfileRepo(db),
		UserRoom:          NewUserRoomRepo(db),
		AuditLog:          NewAuditLogRepo(db),
		ImportHistory:     NewImportHistoryRepo(db),
		EmailNotification: NewEmailNotificationRepo(db),
		EmailPreference:   NewEmailPreferenceRepo(db),
		Recipient:         NewRecipientRepo(db),
	}
}

// BeginTx 开启事务
// 单元测试中 Repository 由 mock 组装、db 为 nil，此时返回 nil 事务，调用方需判空
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务的 Repository 副本；tx 为 nil 时原样返回
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在单个事务内执行 fn，fn 返回错误或 panic 时回滚
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) (err error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(p)
		}
	}()

	if err := fn(r.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		return tx.Commit().Error
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

// GuestListFilter 宾客列表筛选条件，零值字段不参与过滤
type GuestListFilter struct {
	RoomIDs       []string // 接待员可见的接待厅范围；nil 表示不限
	RoomID        string
	CheckedIn     *bool
	CheckedInBy   string
	CheckedInFrom *time.Time
	CheckedInTo   *time.Time
}

// GuestRepository 宾客数据访问接口
type GuestRepository interface {
	Create(ctx context.Context, guest *model.Guest) error
	BulkCreate(ctx context.Context, guests []model.Guest) error
	GetByID(ctx context.Context, id string) (*model.Guest, error)
	List(ctx context.Context, filter GuestListFilter) ([]model.Guest, error)
	Search(ctx context.Context, term string, roomID, userID *string) ([]model.Guest, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	CheckIn(ctx context.Context, id, actorID string, at time.Time) (*model.Guest, error)
	CheckOut(ctx context.Context, id string) (*model.Guest, error)
	Delete(ctx context.Context, id string) error
	DeleteByRoom(ctx context.Context, roomID string) (int64, error)
	Count(ctx context.Context, filter GuestListFilter) (int64, error)
}

type guestRepo struct {
	db *gorm.DB
}

// NewGuestRepo 创建 GuestRepository 实例
func NewGuestRepo(db *gorm.DB) GuestRepository {
	return &guestRepo{db: db}
}

func (r *guestRepo) Create(ctx context.Context, guest *model.Guest) error {
	return r.db.WithContext(ctx).Create(guest).Error
}

// BulkCreate 单条多行 INSERT，任一行违反约束则整批失败
func (r *guestRepo) BulkCreate(ctx context.Context, guests []model.Guest) error {
	if len(guests) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&guests).Error
}

func (r *guestRepo) GetByID(ctx context.Context, id string) (*model.Guest, error) {
	var guest model.Guest
	err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("CheckedInUser").
		Where("id = ?", id).
		First(&guest).Error
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func (r *guestRepo) applyFilter(db *gorm.DB, f GuestListFilter) *gorm.DB {
	if f.RoomIDs != nil {
		db = db.Where("room_id IN ?", f.RoomIDs)
	}
	if f.RoomID != "" {
		db = db.Where("room_id = ?", f.RoomID)
	}
	if f.CheckedIn != nil {
		db = db.Where("checked_in = ?", *f.CheckedIn)
	}
	if f.CheckedInBy != "" {
		db = db.Where("checked_in_by = ?", f.CheckedInBy)
	}
	if f.CheckedInFrom != nil {
		db = db.Where("checked_in_at >= ?", *f.CheckedInFrom)
	}
	if f.CheckedInTo != nil {
		db = db.Where("checked_in_at < ?", *f.CheckedInTo)
	}
	return db
}

func (r *guestRepo) List(ctx context.Context, filter GuestListFilter) ([]model.Guest, error) {
	var guests []model.Guest
	// 空范围直接返回，避免生成 IN () 语句
	if filter.RoomIDs != nil && len(filter.RoomIDs) == 0 {
		return guests, nil
	}
	err := r.applyFilter(r.db.WithContext(ctx), filter).
		Preload("Room").
		Order("last_name ASC, first_name ASC").
		Find(&guests).Error
	return guests, err
}

// Search 调用 search_guests(search_term, room_filter, user_id)
func (r *guestRepo) Search(ctx context.Context, term string, roomID, userID *string) ([]model.Guest, error) {
	var guests []model.Guest
	err := r.db.WithContext(ctx).
		Raw("SELECT * FROM search_guests(?, ?, ?)", term, roomID, userID).
		Scan(&guests).Error
	return guests, err
}

func (r *guestRepo) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Guest{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CheckIn 三个签到字段同时写入并返回更新后的行
func (r *guestRepo) CheckIn(ctx context.Context, id, actorID string, at time.Time) (*model.Guest, error) {
	return r.updateReturning(ctx, id, map[string]interface{}{
		"checked_in":    true,
		"checked_in_at": at,
		"checked_in_by": actorID,
		"updated_at":    at,
	})
}

// CheckOut 无条件清空签到字段，对未签到宾客同样成功
func (r *guestRepo) CheckOut(ctx context.Context, id string) (*model.Guest, error) {
	return r.updateReturning(ctx, id, map[string]interface{}{
		"checked_in":    false,
		"checked_in_at": nil,
		"checked_in_by": nil,
		"updated_at":    time.Now().UTC(),
	})
}

func (r *guestRepo) updateReturning(ctx context.Context, id string, fields map[string]interface{}) (*model.Guest, error) {
	var guests []model.Guest
	result := r.db.WithContext(ctx).
		Model(&guests).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 || len(guests) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &guests[0], nil
}

func (r *guestRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Guest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *guestRepo) DeleteByRoom(ctx context.Context, roomID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&model.Guest{})
	return result.RowsAffected, result.Error
}

func (r *guestRepo) Count(ctx context.Context, filter GuestListFilter) (int64, error) {
	var total int64
	if filter.RoomIDs != nil && len(filter.RoomIDs) == 0 {
		return 0, nil
	}
	err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Guest{}), filter).
		Count(&total).Error
	return total, err
}

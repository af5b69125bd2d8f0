package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

// UserRoomRepository 接待员-接待厅分配数据访问接口
type UserRoomRepository interface {
	Assign(ctx context.Context, userID, roomID string) error
	Remove(ctx context.Context, userID, roomID string) error
	Exists(ctx context.Context, userID, roomID string) (bool, error)
	ListRooms(ctx context.Context, userID string) ([]model.Room, error)
	ListRoomIDs(ctx context.Context, userID string) ([]string, error)
}

type userRoomRepo struct {
	db *gorm.DB
}

// NewUserRoomRepo 创建 UserRoomRepository 实例
func NewUserRoomRepo(db *gorm.DB) UserRoomRepository {
	return &userRoomRepo{db: db}
}

// Assign 已存在时不报错
func (r *userRoomRepo) Assign(ctx context.Context, userID, roomID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserRoom{UserID: userID, RoomID: roomID}).Error
}

func (r *userRoomRepo) Remove(ctx context.Context, userID, roomID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND room_id = ?", userID, roomID).
		Delete(&model.UserRoom{}).Error
}

func (r *userRoomRepo) Exists(ctx context.Context, userID, roomID string) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.UserRoom{}).
		Where("user_id = ? AND room_id = ?", userID, roomID).
		Count(&total).Error
	return total > 0, err
}

func (r *userRoomRepo) ListRooms(ctx context.Context, userID string) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Joins("JOIN user_rooms ur ON ur.room_id = rooms.id").
		Where("ur.user_id = ?", userID).
		Order("rooms.name ASC").
		Find(&rooms).Error
	return rooms, err
}

func (r *userRoomRepo) ListRoomIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&model.UserRoom{}).
		Where("user_id = ?", userID).
		Pluck("room_id", &ids).Error
	return ids, err
}

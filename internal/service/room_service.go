package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
	pkgerrors "github.com/bitandsolution/stadium-hospitality-manager/pkg/errors"
)

// ── 接待厅模块业务错误 ──

var (
	ErrRoomNotFound   = errors.New("Sala non trovata")
	ErrRoomNameExists = errors.New("Esiste già una sala con questo nome")
)

// RoomService 接待厅业务接口
type RoomService interface {
	// List 管理员返回全部接待厅，接待员仅返回已分配的接待厅
	List(ctx context.Context, p Principal) ([]dto.RoomResponse, error)
	GetByID(ctx context.Context, p Principal, id string) (*dto.RoomResponse, error)
	Create(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateRoomRequest) (*dto.RoomResponse, error)
	// Delete 同一事务内删除接待厅及其全部宾客，返回删除的宾客数
	Delete(ctx context.Context, id string) (*dto.DeleteRoomResponse, error)
	Stats(ctx context.Context, p Principal, id string) (*dto.RoomStatsResponse, error)
}

type roomService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(repo *repository.Repository, logger *zap.Logger) RoomService {
	return &roomService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *roomService) List(ctx context.Context, p Principal) ([]dto.RoomResponse, error) {
	var (
		rooms []model.Room
		err   error
	)
	if p.IsAdmin() {
		rooms, err = s.repo.Room.List(ctx)
	} else {
		rooms, err = s.repo.UserRoom.ListRooms(ctx, p.UserID)
	}
	if err != nil {
		s.logger.Error("查询接待厅列表失败", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, err
	}
	return toRoomResponses(rooms), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *roomService) GetByID(ctx context.Context, p Principal, id string) (*dto.RoomResponse, error) {
	if err := authorize(ctx, s.repo, p, ActionRoomRead, Resource{RoomID: id}); err != nil {
		return nil, err
	}
	room, err := s.getRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toRoomResponse(room)
	return &resp, nil
}

func (s *roomService) getRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.repo.Room.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询接待厅失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return room, nil
}

// ────────────────────── Create ──────────────────────

func (s *roomService) Create(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.checkNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	room := &model.Room{Name: name}
	if err := s.repo.Room.Create(ctx, room); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrRoomNameExists
		}
		s.logger.Error("创建接待厅失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	resp := toRoomResponse(room)
	return &resp, nil
}

// checkNameFree 名称大小写不敏感唯一，exceptID 为重命名时的自身 ID
func (s *roomService) checkNameFree(ctx context.Context, name, exceptID string) error {
	existing, err := s.repo.Room.GetByName(ctx, name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询接待厅失败", zap.String("name", name), zap.Error(err))
		return err
	}
	if existing != nil && existing.ID != exceptID {
		return ErrRoomNameExists
	}
	return nil
}

// ────────────────────── Update ──────────────────────

func (s *roomService) Update(ctx context.Context, id string, req *dto.UpdateRoomRequest) (*dto.RoomResponse, error) {
	room, err := s.getRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := s.checkNameFree(ctx, name, id); err != nil {
		return nil, err
	}

	room.Name = name
	if err := s.repo.Room.Update(ctx, room); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrRoomNameExists
		}
		s.logger.Error("更新接待厅失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toRoomResponse(room)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *roomService) Delete(ctx context.Context, id string) (*dto.DeleteRoomResponse, error) {
	var deleted int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		n, err := tx.Guest.DeleteByRoom(ctx, id)
		if err != nil {
			return err
		}
		deleted = n
		return tx.Room.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("删除接待厅失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("删除接待厅", zap.String("id", id), zap.Int64("deleted_guests", deleted))
	return &dto.DeleteRoomResponse{DeletedGuests: deleted}, nil
}

// ────────────────────── Stats ──────────────────────

func (s *roomService) Stats(ctx context.Context, p Principal, id string) (*dto.RoomStatsResponse, error) {
	if err := authorize(ctx, s.repo, p, ActionRoomRead, Resource{RoomID: id}); err != nil {
		return nil, err
	}
	if _, err := s.getRoom(ctx, id); err != nil {
		return nil, err
	}

	stats, err := s.repo.Room.Stats(ctx, id)
	if err != nil {
		s.logger.Error("查询接待厅统计失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return &dto.RoomStatsResponse{
		RoomID:      id,
		TotalGuests: stats.TotalGuests,
		CheckedIn:   stats.CheckedIn,
		Pending:     stats.Pending,
		CheckInRate: checkInRate(stats.CheckedIn, stats.TotalGuests),
	}, nil
}

// checkInRate 签到率百分比，保留一位小数
func checkInRate(checkedIn, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(checkedIn)/float64(total)*1000) / 10
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
	pkgerrors "github.com/bitandsolution/stadium-hospitality-manager/pkg/errors"
)

// ── 宾客模块业务错误 ──

var (
	ErrGuestNotFound    = errors.New("Ospite non trovato")
	ErrGuestRoomMissing = errors.New("La sala dell'ospite non esiste più")
)

// GuestService 宾客业务接口
type GuestService interface {
	List(ctx context.Context, p Principal, req *dto.GuestListRequest) ([]dto.GuestResponse, error)
	Search(ctx context.Context, p Principal, req *dto.GuestSearchRequest) ([]dto.GuestResponse, error)
	GetByID(ctx context.Context, p Principal, id string) (*dto.GuestResponse, error)
	Create(ctx context.Context, p Principal, req *dto.CreateGuestRequest) (*dto.GuestResponse, error)
	Update(ctx context.Context, p Principal, id string, req *dto.UpdateGuestRequest) (*dto.GuestResponse, error)
	Delete(ctx context.Context, p Principal, id string) error
	// CheckIn / CheckOut 不发送通知，签到字段与审计日志在同一事务内写入
	CheckIn(ctx context.Context, p Principal, id string) (*dto.GuestResponse, error)
	CheckOut(ctx context.Context, p Principal, id string) (*dto.GuestResponse, error)
	// AuditLog 某宾客的审计记录（时间倒序）
	AuditLog(ctx context.Context, p Principal, id string) ([]dto.AuditLogResponse, error)
}

type guestService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewGuestService 创建 GuestService 实例
func NewGuestService(repo *repository.Repository, logger *zap.Logger) GuestService {
	return &guestService{repo: repo, logger: logger}
}

// ── 公共辅助 ──

// loadGuest 加载宾客及其接待厅，联表缺失视为数据异常
func loadGuest(ctx context.Context, repo *repository.Repository, logger *zap.Logger, id string) (*model.Guest, error) {
	guest, err := repo.Guest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		logger.Error("查询宾客失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if guest.Room == nil {
		logger.Error("宾客缺少接待厅关联", zap.String("id", id), zap.String("room_id", guest.RoomID))
		return nil, ErrGuestRoomMissing
	}
	return guest, nil
}

// writeAudit 追加一条审计日志
func writeAudit(ctx context.Context, repo *repository.Repository, guestID, userID, action string, oldData, newData map[string]interface{}) error {
	entry := &model.AuditLog{
		GuestID: strPtr(guestID),
		Action:  action,
		OldData: oldData,
		NewData: newData,
	}
	if userID != "" {
		entry.UserID = strPtr(userID)
	}
	return repo.AuditLog.Create(ctx, entry)
}

// ────────────────────── List / Search ──────────────────────

func (s *guestService) List(ctx context.Context, p Principal, req *dto.GuestListRequest) ([]dto.GuestResponse, error) {
	if req.RoomID != "" {
		if err := authorize(ctx, s.repo, p, ActionGuestRead, Resource{RoomID: req.RoomID}); err != nil {
			return nil, err
		}
	}

	roomIDs, err := visibleRoomIDs(ctx, s.repo, p)
	if err != nil {
		s.logger.Error("查询接待员接待厅失败", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, err
	}

	guests, err := s.repo.Guest.List(ctx, repository.GuestListFilter{
		RoomIDs:   roomIDs,
		RoomID:    req.RoomID,
		CheckedIn: req.CheckedIn,
	})
	if err != nil {
		s.logger.Error("查询宾客列表失败", zap.Error(err))
		return nil, err
	}
	return toGuestResponses(guests), nil
}

func (s *guestService) Search(ctx context.Context, p Principal, req *dto.GuestSearchRequest) ([]dto.GuestResponse, error) {
	var roomID *string
	if req.RoomID != "" {
		if err := authorize(ctx, s.repo, p, ActionGuestRead, Resource{RoomID: req.RoomID}); err != nil {
			return nil, err
		}
		roomID = strPtr(req.RoomID)
	}

	// 接待厅范围由 search_guests 按 user_id 限定
	guests, err := s.repo.Guest.Search(ctx, strings.TrimSpace(req.Q), roomID, strPtr(p.UserID))
	if err != nil {
		s.logger.Error("搜索宾客失败", zap.String("q", req.Q), zap.Error(err))
		return nil, err
	}
	return toGuestResponses(guests), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *guestService) GetByID(ctx context.Context, p Principal, id string) (*dto.GuestResponse, error) {
	guest, err := loadGuest(ctx, s.repo, s.logger, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.repo, p, ActionGuestRead, Resource{RoomID: guest.RoomID}); err != nil {
		return nil, err
	}
	return toGuestResponse(guest), nil
}

// ────────────────────── Create ──────────────────────

func (s *guestService) Create(ctx context.Context, p Principal, req *dto.CreateGuestRequest) (*dto.GuestResponse, error) {
	room, err := s.repo.Room.GetByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询接待厅失败", zap.String("room_id", req.RoomID), zap.Error(err))
		return nil, err
	}

	guest := &model.Guest{
		RoomID:      room.ID,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		TableNumber: trimOptional(req.TableNumber),
		SeatNumber:  trimOptional(req.SeatNumber),
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Guest.Create(ctx, guest); err != nil {
			return err
		}
		return writeAudit(ctx, tx, guest.ID, p.UserID, model.AuditActionCreate, nil, guest.Snapshot())
	})
	if err != nil {
		s.logger.Error("创建宾客失败", zap.Error(err))
		return nil, err
	}

	guest.Room = room
	return toGuestResponse(guest), nil
}

// trimOptional 去除首尾空白，空串视为未填
func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// ────────────────────── Update ──────────────────────

func (s *guestService) Update(ctx context.Context, p Principal, id string, req *dto.UpdateGuestRequest) (*dto.GuestResponse, error) {
	guest, err := loadGuest(ctx, s.repo, s.logger, id)
	if err != nil {
		return nil, err
	}
	oldSnap := guest.Snapshot()

	fields := map[string]interface{}{}
	if req.RoomID != nil && *req.RoomID != guest.RoomID {
		room, err := s.repo.Room.GetByID(ctx, *req.RoomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRoomNotFound
			}
			return nil, err
		}
		fields["room_id"] = room.ID
		guest.RoomID = room.ID
		guest.Room = room
	}
	if req.FirstName != nil {
		guest.FirstName = strings.TrimSpace(*req.FirstName)
		fields["first_name"] = guest.FirstName
	}
	if req.LastName != nil {
		guest.LastName = strings.TrimSpace(*req.LastName)
		fields["last_name"] = guest.LastName
	}
	if req.TableNumber != nil {
		guest.TableNumber = trimOptional(req.TableNumber)
		fields["table_number"] = guest.TableNumber
	}
	if req.SeatNumber != nil {
		guest.SeatNumber = trimOptional(req.SeatNumber)
		fields["seat_number"] = guest.SeatNumber
	}
	if len(fields) == 0 {
		return toGuestResponse(guest), nil
	}
	guest.UpdatedAt = time.Now().UTC()
	fields["updated_at"] = guest.UpdatedAt

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Guest.Update(ctx, id, fields); err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, p.UserID, model.AuditActionUpdate, oldSnap, guest.Snapshot())
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		if pkgerrors.IsForeignKeyViolation(err) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("更新宾客失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toGuestResponse(guest), nil
}

// ────────────────────── Delete ──────────────────────

func (s *guestService) Delete(ctx context.Context, p Principal, id string) error {
	guest, err := s.repo.Guest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGuestNotFound
		}
		s.logger.Error("查询宾客失败", zap.String("id", id), zap.Error(err))
		return err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Guest.Delete(ctx, id); err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, p.UserID, model.AuditActionDelete, guest.Snapshot(), nil)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGuestNotFound
		}
		s.logger.Error("删除宾客失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── CheckIn / CheckOut ──────────────────────

func (s *guestService) CheckIn(ctx context.Context, p Principal, id string) (*dto.GuestResponse, error) {
	guest, err := loadGuest(ctx, s.repo, s.logger, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.repo, p, ActionCheckIn, Resource{RoomID: guest.RoomID}); err != nil {
		return nil, err
	}

	var updated *model.Guest
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		updated, err = tx.Guest.CheckIn(ctx, id, p.UserID, time.Now().UTC())
		if err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, p.UserID, model.AuditActionCheckIn, nil, updated.Snapshot())
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		s.logger.Error("宾客签到失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated.Room = guest.Room
	return toGuestResponse(updated), nil
}

func (s *guestService) CheckOut(ctx context.Context, p Principal, id string) (*dto.GuestResponse, error) {
	guest, err := loadGuest(ctx, s.repo, s.logger, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.repo, p, ActionCheckOut, Resource{RoomID: guest.RoomID}); err != nil {
		return nil, err
	}

	var updated *model.Guest
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		updated, err = tx.Guest.CheckOut(ctx, id)
		if err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, p.UserID, model.AuditActionCheckOut, guest.Snapshot(), updated.Snapshot())
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		s.logger.Error("宾客签退失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated.Room = guest.Room
	return toGuestResponse(updated), nil
}

// ────────────────────── AuditLog ──────────────────────

func (s *guestService) AuditLog(ctx context.Context, p Principal, id string) ([]dto.AuditLogResponse, error) {
	// 宾客删除后历史仍可查询，仅管理员可见
	if err := authorize(ctx, s.repo, p, ActionAuditRead, Resource{}); err != nil {
		return nil, err
	}
	logs, err := s.repo.AuditLog.List(ctx, repository.AuditLogFilter{GuestID: id})
	if err != nil {
		s.logger.Error("查询宾客审计日志失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toAuditLogResponses(logs), nil
}

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
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/redis"
)

// ── 用户管理模块业务错误 ──

var (
	ErrCannotDeleteSelf  = errors.New("Non puoi eliminare il tuo account")
	ErrCannotDemoteSelf  = errors.New("Non puoi modificare il tuo ruolo")
	ErrNotHostess        = errors.New("Solo le hostess possono essere assegnate alle sale")
	ErrLastAdministrator = errors.New("Deve restare almeno un amministratore")
)

// ProfileService 用户（接待员）管理业务接口
type ProfileService interface {
	List(ctx context.Context, req *dto.ProfileListRequest) ([]dto.ProfileResponse, error)
	Update(ctx context.Context, p Principal, id string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	// Delete 删除账号并吊销其全部 Token
	Delete(ctx context.Context, p Principal, id string) error
	ListRooms(ctx context.Context, userID string) ([]dto.RoomResponse, error)
	AssignRoom(ctx context.Context, userID, roomID string) (*dto.RoomAssignmentResponse, error)
	RemoveRoom(ctx context.Context, userID, roomID string) (*dto.RoomAssignmentResponse, error)
	// ToggleRoom 已分配则取消，未分配则分配
	ToggleRoom(ctx context.Context, userID, roomID string) (*dto.RoomAssignmentResponse, error)
}

type profileService struct {
	repo      *repository.Repository
	rdb       *redis.Client
	revokeTTL time.Duration
	logger    *zap.Logger
}

// NewProfileService 创建 ProfileService 实例，revokeTTL 取 Access Token 有效期
func NewProfileService(repo *repository.Repository, rdb *redis.Client, revokeTTL time.Duration, logger *zap.Logger) ProfileService {
	return &profileService{repo: repo, rdb: rdb, revokeTTL: revokeTTL, logger: logger}
}

func (s *profileService) getProfile(ctx context.Context, id string) (*model.Profile, error) {
	profile, err := s.repo.Profile.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return profile, nil
}

// ────────────────────── List ──────────────────────

func (s *profileService) List(ctx context.Context, req *dto.ProfileListRequest) ([]dto.ProfileResponse, error) {
	profiles, err := s.repo.Profile.List(ctx, req.Role)
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		result = append(result, toProfileResponse(&profiles[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *profileService) Update(ctx context.Context, p Principal, id string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	profile, err := s.getProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.FullName != nil {
		profile.FullName = strings.TrimSpace(*req.FullName)
		fields["full_name"] = profile.FullName
	}
	if req.Role != nil && *req.Role != profile.Role {
		if id == p.UserID {
			return nil, ErrCannotDemoteSelf
		}
		if profile.Role == model.RoleAdmin {
			if err := s.ensureOtherAdmin(ctx); err != nil {
				return nil, err
			}
		}
		profile.Role = *req.Role
		fields["role"] = profile.Role
	}
	if len(fields) == 0 {
		resp := toProfileResponse(profile)
		return &resp, nil
	}
	profile.UpdatedAt = time.Now().UTC()
	fields["updated_at"] = profile.UpdatedAt

	if err := s.repo.Profile.Update(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toProfileResponse(profile)
	return &resp, nil
}

// ensureOtherAdmin 降级或删除管理员前确认仍有其他管理员
func (s *profileService) ensureOtherAdmin(ctx context.Context) error {
	n, err := s.repo.Profile.Count(ctx, model.RoleAdmin)
	if err != nil {
		s.logger.Error("统计管理员失败", zap.Error(err))
		return err
	}
	if n <= 1 {
		return ErrLastAdministrator
	}
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *profileService) Delete(ctx context.Context, p Principal, id string) error {
	if id == p.UserID {
		return ErrCannotDeleteSelf
	}
	profile, err := s.getProfile(ctx, id)
	if err != nil {
		return err
	}
	if profile.Role == model.RoleAdmin {
		if err := s.ensureOtherAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.repo.Profile.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("删除用户失败", zap.String("id", id), zap.Error(err))
		return err
	}

	// 删除已提交，吊销失败仅记录
	if err := s.rdb.RevokeUser(ctx, id, s.revokeTTL); err != nil {
		s.logger.Warn("吊销用户 Token 失败", zap.String("id", id), zap.Error(err))
	}
	s.logger.Info("删除用户", zap.String("id", id), zap.String("operator", p.UserID))
	return nil
}

// ────────────────────── 接待厅分配 ──────────────────────

func (s *profileService) ListRooms(ctx context.Context, userID string) ([]dto.RoomResponse, error) {
	if _, err := s.getProfile(ctx, userID); err != nil {
		return nil, err
	}
	rooms, err := s.repo.UserRoom.ListRooms(ctx, userID)
	if err != nil {
		s.logger.Error("查询接待员接待厅失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toRoomResponses(rooms), nil
}

// checkAssignment 校验用户为接待员且接待厅存在
func (s *profileService) checkAssignment(ctx context.Context, userID, roomID string) error {
	profile, err := s.getProfile(ctx, userID)
	if err != nil {
		return err
	}
	if profile.Role != model.RoleHostess {
		return ErrNotHostess
	}
	if _, err := s.repo.Room.GetByID(ctx, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		s.logger.Error("查询接待厅失败", zap.String("room_id", roomID), zap.Error(err))
		return err
	}
	return nil
}

func (s *profileService) AssignRoom(ctx context.Context, userID, roomID string) (*dto.RoomAssignmentResponse, error) {
	if err := s.checkAssignment(ctx, userID, roomID); err != nil {
		return nil, err
	}
	if err := s.repo.UserRoom.Assign(ctx, userID, roomID); err != nil {
		s.logger.Error("分配接待厅失败", zap.String("user_id", userID), zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}
	return &dto.RoomAssignmentResponse{UserID: userID, RoomID: roomID, Assigned: true}, nil
}

func (s *profileService) RemoveRoom(ctx context.Context, userID, roomID string) (*dto.RoomAssignmentResponse, error) {
	if err := s.repo.UserRoom.Remove(ctx, userID, roomID); err != nil {
		s.logger.Error("取消接待厅分配失败", zap.String("user_id", userID), zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}
	return &dto.RoomAssignmentResponse{UserID: userID, RoomID: roomID, Assigned: false}, nil
}

func (s *profileService) ToggleRoom(ctx context.Context, userID, roomID string) (*dto.RoomAssignmentResponse, error) {
	assigned, err := s.repo.UserRoom.Exists(ctx, userID, roomID)
	if err != nil {
		s.logger.Error("查询接待厅分配失败", zap.String("user_id", userID), zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}
	if assigned {
		return s.RemoveRoom(ctx, userID, roomID)
	}
	return s.AssignRoom(ctx, userID, roomID)
}

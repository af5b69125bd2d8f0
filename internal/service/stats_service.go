package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
)

const hostessRecentActivity = 10

// StatsService 仪表盘统计接口
type StatsService interface {
	Global(ctx context.Context) (*dto.GlobalStatsResponse, error)
	// RoomPeriod 某接待厅在 [from, to) 内签到的宾客
	RoomPeriod(ctx context.Context, p Principal, roomID string, req *dto.RoomPeriodStatsRequest) (*dto.RoomPeriodStatsResponse, error)
	// Hostess 接待员累计签到数及最近 10 条签到记录
	Hostess(ctx context.Context, p Principal, hostessID string) (*dto.HostessStatsResponse, error)
}

type statsService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewStatsService 创建 StatsService 实例
func NewStatsService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &statsService{repo: repo, loc: loc, logger: logger}
}

// ────────────────────── Global ──────────────────────

func (s *statsService) Global(ctx context.Context) (*dto.GlobalStatsResponse, error) {
	var (
		resp    dto.GlobalStatsResponse
		checked = true
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Guest.Count(gctx, repository.GuestListFilter{})
		resp.TotalGuests = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.Guest.Count(gctx, repository.GuestListFilter{CheckedIn: &checked})
		resp.CheckedInGuests = n
		return err
	})
	g.Go(func() error {
		rooms, err := s.repo.Room.List(gctx)
		resp.TotalRooms = int64(len(rooms))
		return err
	})
	g.Go(func() error {
		n, err := s.repo.Profile.Count(gctx, model.RoleHostess)
		resp.TotalHostesses = n
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("查询全局统计失败", zap.Error(err))
		return nil, err
	}

	resp.PendingGuests = resp.TotalGuests - resp.CheckedInGuests
	return &resp, nil
}

// ────────────────────── RoomPeriod ──────────────────────

func (s *statsService) RoomPeriod(ctx context.Context, p Principal, roomID string, req *dto.RoomPeriodStatsRequest) (*dto.RoomPeriodStatsResponse, error) {
	if err := authorize(ctx, s.repo, p, ActionRoomRead, Resource{RoomID: roomID}); err != nil {
		return nil, err
	}

	from, err := parseBound(req.From, s.loc, false)
	if err != nil {
		return nil, err
	}
	to, err := parseBound(req.To, s.loc, true)
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil || !from.Before(*to) {
		return nil, ErrInvalidTimeRange
	}

	if _, err := s.repo.Room.GetByID(ctx, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询接待厅失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	guests, err := s.repo.Guest.List(ctx, repository.GuestListFilter{
		RoomID:        roomID,
		CheckedInFrom: from,
		CheckedInTo:   to,
	})
	if err != nil {
		s.logger.Error("查询接待厅时段签到失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	times := make([]string, 0, len(guests))
	for i := range guests {
		if guests[i].CheckedInAt != nil {
			times = append(times, formatTime(*guests[i].CheckedInAt))
		}
	}

	return &dto.RoomPeriodStatsResponse{
		RoomID:    roomID,
		From:      formatTime(*from),
		To:        formatTime(*to),
		CheckedIn: len(times),
		Times:     times,
	}, nil
}

// ────────────────────── Hostess ──────────────────────

func (s *statsService) Hostess(ctx context.Context, p Principal, hostessID string) (*dto.HostessStatsResponse, error) {
	// 接待员只能查看自己的统计
	if !p.IsAdmin() && p.UserID != hostessID {
		return nil, ErrNoPermission
	}

	checked := true
	total, err := s.repo.Guest.Count(ctx, repository.GuestListFilter{
		CheckedIn:   &checked,
		CheckedInBy: hostessID,
	})
	if err != nil {
		s.logger.Error("统计接待员签到数失败", zap.String("hostess_id", hostessID), zap.Error(err))
		return nil, err
	}

	logs, err := s.repo.AuditLog.List(ctx, repository.AuditLogFilter{
		UserID:  hostessID,
		Actions: []string{model.AuditActionCheckIn},
		Limit:   hostessRecentActivity,
	})
	if err != nil {
		s.logger.Error("查询接待员签到记录失败", zap.String("hostess_id", hostessID), zap.Error(err))
		return nil, err
	}

	return &dto.HostessStatsResponse{
		HostessID:      hostessID,
		TotalCheckIns:  total,
		RecentActivity: toAuditLogResponses(logs),
	}, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
)

var ErrInvalidTimeRange = errors.New("Formato data non valido: usare YYYY-MM-DD o RFC3339")

const defaultAuditLimit = 100

// AuditService 审计日志查询接口
type AuditService interface {
	List(ctx context.Context, req *dto.AuditLogListRequest) ([]dto.AuditLogResponse, error)
}

type auditService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewAuditService 创建 AuditService 实例，日期型参数按 loc 解释
func NewAuditService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) AuditService {
	if loc == nil {
		loc = time.UTC
	}
	return &auditService{repo: repo, loc: loc, logger: logger}
}

func (s *auditService) List(ctx context.Context, req *dto.AuditLogListRequest) ([]dto.AuditLogResponse, error) {
	filter := repository.AuditLogFilter{
		GuestID: req.GuestID,
		UserID:  req.UserID,
		Limit:   req.Limit,
	}
	if filter.Limit == 0 {
		filter.Limit = defaultAuditLimit
	}
	if req.Action != "" {
		filter.Actions = []string{req.Action}
	}

	var err error
	if filter.Since, err = parseBound(req.Since, s.loc, false); err != nil {
		return nil, err
	}
	if filter.Until, err = parseBound(req.Until, s.loc, true); err != nil {
		return nil, err
	}

	logs, err := s.repo.AuditLog.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询审计日志失败", zap.Error(err))
		return nil, err
	}
	return toAuditLogResponses(logs), nil
}

// parseBound 解析时间边界；YYYY-MM-DD 按 loc 的当日零点，endOfDay 为 true 时取次日零点（开区间）
func parseBound(v string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	d, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return nil, ErrInvalidTimeRange
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1)
	}
	return &d, nil
}

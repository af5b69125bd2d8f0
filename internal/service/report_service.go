package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
)

// ReportService 每日访问报告
type ReportService interface {
	// SendDailyReport 汇总 day 当天（按配置时区）的签到 / 签退并发送给订阅日报的管理员
	SendDailyReport(ctx context.Context, day time.Time) (*dto.BatchSendResponse, error)
}

type reportService struct {
	repo     *repository.Repository
	email    EmailService
	resolver RecipientResolver
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, email EmailService, resolver RecipientResolver, loc *time.Location, logger *zap.Logger) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{
		repo:     repo,
		email:    email,
		resolver: resolver,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// dayBounds day 所在自然日在 loc 中的 [00:00, 次日 00:00)
func dayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func (s *reportService) SendDailyReport(ctx context.Context, day time.Time) (*dto.BatchSendResponse, error) {
	start, end := dayBounds(day, s.loc)

	rows, err := s.repo.AuditLog.ListActivity(ctx, start, end)
	if err != nil {
		s.logger.Error("查询日报数据失败", zap.Time("day", start), zap.Error(err))
		return nil, err
	}

	now := s.now()
	recipients, err := s.resolver.Resolve(ctx, model.NotificationTypeDailyReport, model.PriorityLow, now)
	if err != nil {
		s.logger.Error("解析日报收件人失败", zap.Error(err))
		return nil, err
	}

	data := buildDailyReport(rows, start, now)
	result := s.email.SendDailyReport(ctx, data, recipients)

	s.logger.Info("发送日报",
		zap.String("date", start.Format("2006-01-02")),
		zap.Int("check_ins", data.TotalCheckIns),
		zap.Int("check_outs", data.TotalCheckOuts),
		zap.Int("recipients", result.Recipients),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return &result, nil
}

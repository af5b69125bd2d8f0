package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/jwt"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/mailer"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Room         RoomService
	Guest        GuestService
	CheckIn      CheckInService
	Profile      ProfileService
	Audit        AuditService
	Stats        StatsService
	ImportExport ImportExportService
	Email        EmailService
	Report       ReportService
	Dispatcher   NotificationDispatcher
}

// NewService 创建 Service 聚合
// loc 为业务时区：免打扰判断、邮件时间显示与日报日界均按此时区计算
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	provider mailer.Provider,
	loc *time.Location,
	logger *zap.Logger,
) *Service {
	resolver := NewRecipientResolver(repo, loc, logger)
	dispatcher := NewNotificationDispatcher(cfg, repo, provider, logger)
	email := NewEmailService(cfg, repo, provider, resolver, loc, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Room:         NewRoomService(repo, logger),
		Guest:        NewGuestService(repo, logger),
		CheckIn:      NewCheckInService(cfg, repo, resolver, dispatcher, loc, logger),
		Profile:      NewProfileService(repo, rdb, cfg.Auth.AccessTokenTTL, logger),
		Audit:        NewAuditService(repo, loc, logger),
		Stats:        NewStatsService(repo, loc, logger),
		ImportExport: NewImportExportService(repo, rdb, cfg.Import.MaxRows, loc, logger),
		Email:        email,
		Report:       NewReportService(repo, email, resolver, loc, logger),
		Dispatcher:   dispatcher,
	}
}

package handler

import (
	"time"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/realtime"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Room         *RoomHandler
	Guest        *GuestHandler
	Profile      *ProfileHandler
	Audit        *AuditHandler
	Stats        *StatsHandler
	ImportExport *ImportExportHandler
	Email        *EmailHandler
	Health       *HealthHandler
}

// NewHandler 创建 Handler 聚合，hub 为 nil 时实时推送接口返回 503
func NewHandler(cfg *config.Config, svc *service.Service, hub *realtime.Hub, health *HealthHandler, loc *time.Location) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, &cfg.Auth),
		Room:         NewRoomHandler(svc.Room, hub),
		Guest:        NewGuestHandler(svc.Guest, svc.CheckIn),
		Profile:      NewProfileHandler(svc.Profile),
		Audit:        NewAuditHandler(svc.Audit),
		Stats:        NewStatsHandler(svc.Stats),
		ImportExport: NewImportExportHandler(svc.ImportExport, cfg.Import.MaxFileSize),
		Email:        NewEmailHandler(svc.Email, svc.Report, svc.Dispatcher, loc),
		Health:       health,
	}
}

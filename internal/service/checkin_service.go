package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
)

// CheckInService 带邮件通知的签到 / 签退流程
// 宾客更新、审计日志与通知行在同一事务内写入，投递在事务提交后异步进行
type CheckInService interface {
	CheckInWithNotification(ctx context.Context, p Principal, guestID string) (*dto.GuestResponse, error)
	CheckOutWithNotification(ctx context.Context, p Principal, guestID string) (*dto.GuestResponse, error)
}

type checkInService struct {
	repo       *repository.Repository
	resolver   RecipientResolver
	dispatcher NotificationDispatcher
	factory    notificationFactory
	logger     *zap.Logger
	now        func() time.Time
}

// NewCheckInService 创建 CheckInService 实例
func NewCheckInService(
	cfg *config.Config,
	repo *repository.Repository,
	resolver RecipientResolver,
	dispatcher NotificationDispatcher,
	loc *time.Location,
	logger *zap.Logger,
) CheckInService {
	return &checkInService{
		repo:       repo,
		resolver:   resolver,
		dispatcher: dispatcher,
		factory:    newNotificationFactory(loc, cfg.Notification.MaxAttempts),
		logger:     logger,
		now:        time.Now,
	}
}

// prepare 加载宾客并校验权限，返回宾客与操作人显示名
func (s *checkInService) prepare(ctx context.Context, p Principal, guestID string, action Action) (*model.Guest, string, error) {
	guest, err := loadGuest(ctx, s.repo, s.logger, guestID)
	if err != nil {
		return nil, "", err
	}
	if err := authorize(ctx, s.repo, p, action, Resource{RoomID: guest.RoomID}); err != nil {
		return nil, "", err
	}

	// 显示名仅用于邮件，查询失败时使用默认文案
	hostessName := ""
	actor, err := s.repo.Profile.GetByID(ctx, p.UserID)
	if err != nil {
		s.logger.Warn("查询操作人失败", zap.String("user_id", p.UserID), zap.Error(err))
	} else {
		hostessName = actor.FullName
	}
	return guest, hostessName, nil
}

// resolve 收件人解析失败不阻断签到流程
func (s *checkInService) resolve(ctx context.Context, eventType string, now time.Time) []ResolvedRecipient {
	recipients, err := s.resolver.Resolve(ctx, eventType, model.PriorityMedium, now)
	if err != nil {
		s.logger.Error("解析通知收件人失败", zap.String("event", eventType), zap.Error(err))
		return nil
	}
	return recipients
}

// dispatchable 仅返回可立即投递的通知（免打扰延后的由后台补发）
func dispatchable(items []model.EmailNotification) []string {
	immediate := make([]model.EmailNotification, 0, len(items))
	for i := range items {
		if items[i].ScheduledFor == nil {
			immediate = append(immediate, items[i])
		}
	}
	return notificationIDs(immediate)
}

// ────────────────────── CheckIn ──────────────────────

func (s *checkInService) CheckInWithNotification(ctx context.Context, p Principal, guestID string) (*dto.GuestResponse, error) {
	ctx, span := tracer.Start(ctx, "guest.check_in")
	span.SetAttributes(attribute.String("guest.id", guestID))
	defer span.End()

	guest, hostessName, err := s.prepare(ctx, p, guestID, ActionCheckIn)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	recipients := s.resolve(ctx, model.NotificationTypeGuestCheckIn, now)
	data := CheckInEmailData{
		GuestName:   guest.FullName(),
		RoomName:    guest.Room.Name,
		TableNumber: guest.TableNumber,
		HostessName: hostessName,
		CheckInTime: now,
	}

	var (
		updated *model.Guest
		outbox  []model.EmailNotification
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		updated, err = tx.Guest.CheckIn(ctx, guestID, p.UserID, now)
		if err != nil {
			return err
		}
		if err := writeAudit(ctx, tx, guestID, p.UserID, model.AuditActionCheckIn, nil, updated.Snapshot()); err != nil {
			return err
		}
		outbox = make([]model.EmailNotification, 0, len(recipients))
		for _, rc := range recipients {
			outbox = append(outbox, s.factory.checkIn(data, rc, strPtr(p.UserID), now))
		}
		return tx.EmailNotification.CreateBatch(ctx, outbox)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		s.logger.Error("宾客签到失败", zap.String("id", guestID), zap.Error(err))
		return nil, err
	}

	s.dispatcher.Dispatch(dispatchable(outbox))
	s.logger.Info("宾客签到",
		zap.String("guest_id", guestID),
		zap.String("user_id", p.UserID),
		zap.Int("notifications", len(outbox)),
	)

	updated.Room = guest.Room
	return toGuestResponse(updated), nil
}

// ────────────────────── CheckOut ──────────────────────

func (s *checkInService) CheckOutWithNotification(ctx context.Context, p Principal, guestID string) (*dto.GuestResponse, error) {
	ctx, span := tracer.Start(ctx, "guest.check_out")
	span.SetAttributes(attribute.String("guest.id", guestID))
	defer span.End()

	guest, hostessName, err := s.prepare(ctx, p, guestID, ActionCheckOut)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var stay time.Duration
	if guest.CheckedInAt != nil {
		stay = now.Sub(*guest.CheckedInAt)
	}

	recipients := s.resolve(ctx, model.NotificationTypeGuestCheckOut, now)
	data := CheckOutEmailData{
		GuestName:    guest.FullName(),
		RoomName:     guest.Room.Name,
		HostessName:  hostessName,
		CheckOutTime: now,
		Duration:     stay,
	}

	var (
		updated *model.Guest
		outbox  []model.EmailNotification
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		updated, err = tx.Guest.CheckOut(ctx, guestID)
		if err != nil {
			return err
		}
		if err := writeAudit(ctx, tx, guestID, p.UserID, model.AuditActionCheckOut, guest.Snapshot(), updated.Snapshot()); err != nil {
			return err
		}
		outbox = make([]model.EmailNotification, 0, len(recipients))
		for _, rc := range recipients {
			outbox = append(outbox, s.factory.checkOut(data, rc, strPtr(p.UserID), now))
		}
		return tx.EmailNotification.CreateBatch(ctx, outbox)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		s.logger.Error("宾客签退失败", zap.String("id", guestID), zap.Error(err))
		return nil, err
	}

	s.dispatcher.Dispatch(dispatchable(outbox))
	s.logger.Info("宾客签退",
		zap.String("guest_id", guestID),
		zap.String("user_id", p.UserID),
		zap.Duration("stay", stay),
		zap.Int("notifications", len(outbox)),
	)

	updated.Room = guest.Room
	return toGuestResponse(updated), nil
}

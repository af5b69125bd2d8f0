package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/mailer"
)

// ── 邮件模块业务错误 ──

var (
	ErrInvalidQuietHours = errors.New("Formato delle ore di silenzio non valido: usare HH:MM")
	ErrInvalidFrequency  = errors.New("Frequenza email non valida")
)

const (
	defaultNotificationLimit = 50
	defaultStatsDays         = 7
	statsDateLayout          = "2006-01-02"
)

// EmailService 邮件通知业务接口
// 发送类方法不返回错误：投递失败记录在通知行中并计入结果
type EmailService interface {
	// SendEmail 写入 pending 行，经服务商投递一次，再标记 sent 或 failed
	SendEmail(ctx context.Context, n *model.EmailNotification) bool
	SendCheckInNotification(ctx context.Context, data CheckInEmailData, recipients []ResolvedRecipient, createdBy *string) dto.BatchSendResponse
	SendCheckOutNotification(ctx context.Context, data CheckOutEmailData, recipients []ResolvedRecipient, createdBy *string) dto.BatchSendResponse
	SendDailyReport(ctx context.Context, data DailyReportData, recipients []ResolvedRecipient) dto.BatchSendResponse
	SendTestNotification(ctx context.Context, recipient string, createdBy *string) bool
	// SendSystemAlert 发送给订阅 system_alert 的管理员，高优先级不受免打扰限制
	SendSystemAlert(ctx context.Context, req *dto.SystemAlertRequest, createdBy *string) (*dto.BatchSendResponse, error)
	// ResendCheckInNotification 按宾客当前签到信息向全部管理员补发签到通知
	ResendCheckInNotification(ctx context.Context, guestID string, createdBy *string) (*dto.BatchSendResponse, error)

	GetNotifications(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationResponse, error)
	GetEmailStats(ctx context.Context, days int) (*dto.EmailStatsResponse, error)
	GetPreferences(ctx context.Context, userID string) (*dto.EmailPreferenceResponse, error)
	UpdatePreferences(ctx context.Context, userID string, req *dto.UpdateEmailPreferenceRequest) (*dto.EmailPreferenceResponse, error)
	// Cleanup 删除超过保留期的终态通知，days<=0 时使用配置值
	Cleanup(ctx context.Context, days int) (*dto.CleanupResponse, error)
}

type emailService struct {
	repo     *repository.Repository
	provider mailer.Provider
	resolver RecipientResolver
	factory  notificationFactory
	cfg      config.NotificationConfig
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewEmailService 创建 EmailService 实例
func NewEmailService(
	cfg *config.Config,
	repo *repository.Repository,
	provider mailer.Provider,
	resolver RecipientResolver,
	loc *time.Location,
	logger *zap.Logger,
) EmailService {
	return &emailService{
		repo:     repo,
		provider: provider,
		resolver: resolver,
		factory:  newNotificationFactory(loc, cfg.Notification.MaxAttempts),
		cfg:      cfg.Notification,
		timeout:  sendTimeout(cfg.Mail.Timeout),
		logger:   logger,
		now:      time.Now,
	}
}

// sendTimeout 单次投递超时（略大于 HTTP 客户端超时）
func sendTimeout(mailTimeout time.Duration) time.Duration {
	if mailTimeout <= 0 {
		mailTimeout = 10 * time.Second
	}
	return mailTimeout + 5*time.Second
}

// ────────────────────── 通知行构造 ──────────────────────

// notificationFactory 按模板生成待投递的通知行
type notificationFactory struct {
	loc         *time.Location
	maxAttempts int
}

func newNotificationFactory(loc *time.Location, maxAttempts int) notificationFactory {
	if loc == nil {
		loc = time.UTC
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return notificationFactory{loc: loc, maxAttempts: maxAttempts}
}

// build 生成一行 pending 通知；收件人处于免打扰时段时延后到窗口结束
func (f notificationFactory) build(rc ResolvedRecipient, typ, priority string, tpl EmailTemplate, data, meta map[string]interface{}, createdBy *string, now time.Time) model.EmailNotification {
	subject, body := tpl.Render(data)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	n := model.EmailNotification{
		Recipient:     rc.Email,
		Type:          typ,
		Subject:       subject,
		Content:       body,
		Priority:      priority,
		Status:        model.NotificationStatusPending,
		Metadata:      meta,
		MaxAttempts:   f.maxAttempts,
		NextAttemptAt: now.UTC(),
		CreatedAt:     now.UTC(),
		CreatedBy:     createdBy,
	}
	if rc.FullName != "" {
		n.RecipientName = strPtr(rc.FullName)
	}
	if rc.DeferUntil != nil {
		at := rc.DeferUntil.UTC()
		n.NextAttemptAt = at
		n.ScheduledFor = &at
	}
	return n
}

func (f notificationFactory) checkIn(data CheckInEmailData, rc ResolvedRecipient, createdBy *string, now time.Time) model.EmailNotification {
	return f.build(rc, model.NotificationTypeGuestCheckIn, model.PriorityMedium, TemplateGuestCheckIn,
		data.templateData(f.loc),
		map[string]interface{}{
			"guestName": data.GuestName,
			"roomName":  orDefault(data.RoomName, fallbackRoomName),
			"action":    model.AuditActionCheckIn,
		}, createdBy, now)
}

func (f notificationFactory) checkOut(data CheckOutEmailData, rc ResolvedRecipient, createdBy *string, now time.Time) model.EmailNotification {
	return f.build(rc, model.NotificationTypeGuestCheckOut, model.PriorityMedium, TemplateGuestCheckOut,
		data.templateData(f.loc),
		map[string]interface{}{
			"guestName": data.GuestName,
			"roomName":  orDefault(data.RoomName, fallbackRoomName),
			"action":    model.AuditActionCheckOut,
			"duration":  formatDuration(data.Duration),
		}, createdBy, now)
}

func (f notificationFactory) dailyReport(data DailyReportData, rc ResolvedRecipient, now time.Time) model.EmailNotification {
	return f.build(rc, model.NotificationTypeDailyReport, model.PriorityLow, TemplateDailyReport,
		data.templateData(f.loc),
		map[string]interface{}{
			"reportDate":     data.Date.In(f.loc).Format(dateLayoutIT),
			"totalCheckIns":  data.TotalCheckIns,
			"totalCheckOuts": data.TotalCheckOuts,
		}, nil, now)
}

func (f notificationFactory) systemAlert(req *dto.SystemAlertRequest, rc ResolvedRecipient, createdBy *string, now time.Time) model.EmailNotification {
	return f.build(rc, model.NotificationTypeSystemAlert, model.PriorityHigh, TemplateSystemAlert,
		map[string]interface{}{
			"alertType": req.AlertType,
			"message":   req.Message,
			"timestamp": now.In(f.loc).Format(stampLayoutIT),
			"details":   mailer.Trusted(mailer.MarkdownToHTML(req.Details)),
		},
		map[string]interface{}{"alertType": req.AlertType}, createdBy, now)
}

func (f notificationFactory) test(recipient string, createdBy *string, now time.Time) model.EmailNotification {
	rc := ResolvedRecipient{Recipient: model.Recipient{Email: recipient, FullName: testRecipientName}}
	return f.build(rc, model.NotificationTypeSystemAlert, model.PriorityLow, TemplateTest,
		map[string]interface{}{"sentAt": now.In(f.loc).Format(stampLayoutIT)},
		nil, createdBy, now)
}

// ────────────────────── SendEmail ──────────────────────

func (s *emailService) SendEmail(ctx context.Context, n *model.EmailNotification) bool {
	n.Status = model.NotificationStatusPending
	n.Attempts = 1
	if n.Metadata == nil {
		n.Metadata = map[string]interface{}{}
	}
	if err := s.repo.EmailNotification.Create(ctx, n); err != nil {
		s.logger.Error("保存邮件通知失败", zap.String("recipient", n.Recipient), zap.String("type", n.Type), zap.Error(err))
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	sendErr := s.provider.Send(sendCtx, toMessage(n))
	cancel()

	if sendErr != nil {
		s.logger.Warn("邮件发送失败",
			zap.String("id", n.ID),
			zap.String("provider", s.provider.Name()),
			zap.Error(sendErr),
		)
		if err := s.repo.EmailNotification.MarkFailed(ctx, n.ID, sendErr.Error()); err != nil {
			s.logger.Error("更新通知状态失败", zap.String("id", n.ID), zap.Error(err))
		} else {
			n.Status = model.NotificationStatusFailed
		}
		return false
	}

	sentAt := s.now().UTC()
	if err := s.repo.EmailNotification.MarkSent(ctx, n.ID, sentAt); err != nil {
		s.logger.Error("更新通知状态失败", zap.String("id", n.ID), zap.Error(err))
	} else {
		n.Status = model.NotificationStatusSent
		n.SentAt = &sentAt
	}
	return true
}

func toMessage(n *model.EmailNotification) mailer.Message {
	msg := mailer.Message{To: n.Recipient, Subject: n.Subject, HTML: n.Content}
	if n.RecipientName != nil {
		msg.ToName = *n.RecipientName
	}
	return msg
}

// sendAll 逐个收件人独立发送，允许部分失败；免打扰中的收件人仅入队
func (s *emailService) sendAll(ctx context.Context, recipients []ResolvedRecipient, build func(rc ResolvedRecipient, now time.Time) model.EmailNotification) dto.BatchSendResponse {
	result := dto.BatchSendResponse{Recipients: len(recipients)}
	for _, rc := range recipients {
		n := build(rc, s.now())
		if rc.DeferUntil != nil {
			if err := s.repo.EmailNotification.Create(ctx, &n); err != nil {
				s.logger.Error("保存延后通知失败", zap.String("recipient", rc.Email), zap.Error(err))
				result.Failed++
				continue
			}
			result.Deferred++
			continue
		}
		if s.SendEmail(ctx, &n) {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	return result
}

func (s *emailService) SendCheckInNotification(ctx context.Context, data CheckInEmailData, recipients []ResolvedRecipient, createdBy *string) dto.BatchSendResponse {
	return s.sendAll(ctx, recipients, func(rc ResolvedRecipient, now time.Time) model.EmailNotification {
		return s.factory.checkIn(data, rc, createdBy, now)
	})
}

func (s *emailService) SendCheckOutNotification(ctx context.Context, data CheckOutEmailData, recipients []ResolvedRecipient, createdBy *string) dto.BatchSendResponse {
	return s.sendAll(ctx, recipients, func(rc ResolvedRecipient, now time.Time) model.EmailNotification {
		return s.factory.checkOut(data, rc, createdBy, now)
	})
}

func (s *emailService) SendDailyReport(ctx context.Context, data DailyReportData, recipients []ResolvedRecipient) dto.BatchSendResponse {
	return s.sendAll(ctx, recipients, func(rc ResolvedRecipient, now time.Time) model.EmailNotification {
		return s.factory.dailyReport(data, rc, now)
	})
}

func (s *emailService) SendTestNotification(ctx context.Context, recipient string, createdBy *string) bool {
	n := s.factory.test(recipient, createdBy, s.now())
	return s.SendEmail(ctx, &n)
}

func (s *emailService) SendSystemAlert(ctx context.Context, req *dto.SystemAlertRequest, createdBy *string) (*dto.BatchSendResponse, error) {
	recipients, err := s.resolver.Resolve(ctx, model.NotificationTypeSystemAlert, model.PriorityHigh, s.now())
	if err != nil {
		s.logger.Error("解析告警收件人失败", zap.Error(err))
		return nil, err
	}
	result := s.sendAll(ctx, recipients, func(rc ResolvedRecipient, now time.Time) model.EmailNotification {
		return s.factory.systemAlert(req, rc, createdBy, now)
	})
	return &result, nil
}

func (s *emailService) ResendCheckInNotification(ctx context.Context, guestID string, createdBy *string) (*dto.BatchSendResponse, error) {
	guest, err := loadGuest(ctx, s.repo, s.logger, guestID)
	if err != nil {
		return nil, err
	}

	emails, err := s.repo.Recipient.AdminEmails(ctx)
	if err != nil {
		s.logger.Error("查询管理员邮箱失败", zap.Error(err))
		return nil, err
	}

	data := CheckInEmailData{
		GuestName:   guest.FullName(),
		RoomName:    guest.Room.Name,
		TableNumber: guest.TableNumber,
		CheckInTime: s.now(),
	}
	if guest.CheckedInAt != nil {
		data.CheckInTime = *guest.CheckedInAt
	}
	if guest.CheckedInUser != nil {
		data.HostessName = guest.CheckedInUser.FullName
	}

	recipients := make([]ResolvedRecipient, 0, len(emails))
	for _, email := range emails {
		recipients = append(recipients, ResolvedRecipient{Recipient: model.Recipient{Email: email}})
	}
	result := s.SendCheckInNotification(ctx, data, recipients, createdBy)
	return &result, nil
}

// ────────────────────── 查询与统计 ──────────────────────

func (s *emailService) GetNotifications(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultNotificationLimit
	}
	items, err := s.repo.EmailNotification.List(ctx, repository.NotificationFilter{
		Status: req.Status,
		Type:   req.Type,
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error("查询邮件通知失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		result = append(result, toNotificationResponse(&items[i]))
	}
	return result, nil
}

func (s *emailService) GetEmailStats(ctx context.Context, days int) (*dto.EmailStatsResponse, error) {
	if days <= 0 {
		days = defaultStatsDays
	}
	since := s.now().UTC().AddDate(0, 0, -days)

	items, err := s.repo.EmailNotification.ListSince(ctx, since)
	if err != nil {
		s.logger.Error("查询邮件统计失败", zap.Error(err))
		return nil, err
	}
	return aggregateEmailStats(items), nil
}

// aggregateEmailStats 按状态、类型、UTC 日期汇总
func aggregateEmailStats(items []model.EmailNotification) *dto.EmailStatsResponse {
	stats := &dto.EmailStatsResponse{
		ByType:         map[string]int{},
		ByStatus:       map[string]int{},
		RecentActivity: []dto.DailyActivity{},
	}
	daily := map[string]*dto.DailyActivity{}

	for i := range items {
		n := &items[i]
		stats.ByType[n.Type]++
		stats.ByStatus[n.Status]++

		switch n.Status {
		case model.NotificationStatusSent:
			stats.TotalSent++
		case model.NotificationStatusFailed:
			stats.TotalFailed++
		case model.NotificationStatusPending:
			stats.TotalPending++
		case model.NotificationStatusDead:
			stats.TotalDead++
		}

		if n.Status != model.NotificationStatusSent && n.Status != model.NotificationStatusFailed {
			continue
		}
		date := n.CreatedAt.UTC().Format(statsDateLayout)
		d, ok := daily[date]
		if !ok {
			d = &dto.DailyActivity{Date: date}
			daily[date] = d
		}
		if n.Status == model.NotificationStatusSent {
			d.Sent++
		} else {
			d.Failed++
		}
	}

	if terminal := stats.TotalSent + stats.TotalFailed; terminal > 0 {
		stats.SuccessRate = float64(stats.TotalSent) / float64(terminal) * 100
	}

	for _, d := range daily {
		stats.RecentActivity = append(stats.RecentActivity, *d)
	}
	sort.Slice(stats.RecentActivity, func(i, j int) bool {
		return stats.RecentActivity[i].Date < stats.RecentActivity[j].Date
	})
	return stats
}

// ────────────────────── 偏好设置 ──────────────────────

func (s *emailService) loadPreference(ctx context.Context, userID string) (*model.EmailPreference, error) {
	pref, err := s.repo.EmailPreference.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DefaultEmailPreference(userID), nil
		}
		s.logger.Error("查询邮件偏好失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return pref, nil
}

func (s *emailService) GetPreferences(ctx context.Context, userID string) (*dto.EmailPreferenceResponse, error) {
	pref, err := s.loadPreference(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toPreferenceResponse(pref), nil
}

func (s *emailService) UpdatePreferences(ctx context.Context, userID string, req *dto.UpdateEmailPreferenceRequest) (*dto.EmailPreferenceResponse, error) {
	pref, err := s.loadPreference(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.ReceiveCheckInNotifications != nil {
		pref.ReceiveCheckInNotifications = *req.ReceiveCheckInNotifications
	}
	if req.ReceiveCheckOutNotifications != nil {
		pref.ReceiveCheckOutNotifications = *req.ReceiveCheckOutNotifications
	}
	if req.ReceiveDailyReports != nil {
		pref.ReceiveDailyReports = *req.ReceiveDailyReports
	}
	if req.ReceiveSystemAlerts != nil {
		pref.ReceiveSystemAlerts = *req.ReceiveSystemAlerts
	}
	if req.EmailFrequency != nil {
		switch *req.EmailFrequency {
		case model.FrequencyRealTime, model.FrequencyHourly, model.FrequencyDaily, model.FrequencyDisabled:
			pref.EmailFrequency = *req.EmailFrequency
		default:
			return nil, ErrInvalidFrequency
		}
	}
	if req.QuietHoursStart != nil {
		if pref.QuietHoursStart, err = normalizeClock(*req.QuietHoursStart); err != nil {
			return nil, err
		}
	}
	if req.QuietHoursEnd != nil {
		if pref.QuietHoursEnd, err = normalizeClock(*req.QuietHoursEnd); err != nil {
			return nil, err
		}
	}

	if err := s.repo.EmailPreference.Upsert(ctx, pref); err != nil {
		s.logger.Error("保存邮件偏好失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toPreferenceResponse(pref), nil
}

// normalizeClock 空串表示清除；否则校验并规范为 HH:MM
func normalizeClock(v string) (*string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return nil, ErrInvalidQuietHours
	}
	return strPtr(t.Format("15:04")), nil
}

// ────────────────────── Cleanup ──────────────────────

func (s *emailService) Cleanup(ctx context.Context, days int) (*dto.CleanupResponse, error) {
	if days <= 0 {
		days = s.cfg.RetentionDays
	}
	deleted, err := s.repo.EmailNotification.Cleanup(ctx, days)
	if err != nil {
		s.logger.Error("清理邮件通知失败", zap.Int("days", days), zap.Error(err))
		return nil, err
	}
	s.logger.Info("清理邮件通知", zap.Int("days", days), zap.Int64("deleted", deleted))
	return &dto.CleanupResponse{Deleted: deleted}, nil
}

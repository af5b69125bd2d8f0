package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
	pkgerrors "github.com/bitandsolution/stadium-hospitality-manager/pkg/errors"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/mailer"
)

// maxBackoff 重试间隔上限
const maxBackoff = time.Hour

// DeliveryOutcome 单条通知投递结果
type DeliveryOutcome int

const (
	OutcomeSkipped  DeliveryOutcome = iota // 未领取到（已终结、未到期或被其他实例领取）
	OutcomeSent                            // 已发送
	OutcomeRetrying                        // 失败，等待重试
	OutcomeDead                            // 重试次数耗尽
)

// NotificationDispatcher 发件箱投递
// Dispatch 在独立 goroutine 中延迟投递，不影响已返回的请求
type NotificationDispatcher interface {
	Dispatch(ids []string)
	Deliver(ctx context.Context, id string) DeliveryOutcome
	// ProcessPending 补发一批超过 sweep_min_age 仍为 pending 且已到期的通知
	ProcessPending(ctx context.Context) (*dto.ProcessPendingResponse, error)
	InFlight() int64
	// Wait 等待全部后台投递结束，ctx 到期时返回 ctx.Err()
	Wait(ctx context.Context) error
}

type notificationDispatcher struct {
	repo     *repository.Repository
	provider mailer.Provider
	cfg      config.NotificationConfig
	timeout  time.Duration
	logger   *zap.Logger

	inFlight atomic.Int64
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewNotificationDispatcher 创建 NotificationDispatcher 实例
func NewNotificationDispatcher(cfg *config.Config, repo *repository.Repository, provider mailer.Provider, logger *zap.Logger) NotificationDispatcher {
	return &notificationDispatcher{
		repo:     repo,
		provider: provider,
		cfg:      cfg.Notification,
		timeout:  sendTimeout(cfg.Mail.Timeout),
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── Dispatch ──────────────────────

func (d *notificationDispatcher) Dispatch(ids []string) {
	if len(ids) == 0 {
		return
	}
	d.wg.Add(1)
	d.inFlight.Add(int64(len(ids)))

	go func() {
		defer d.wg.Done()
		if d.cfg.DispatchDelay > 0 {
			time.Sleep(d.cfg.DispatchDelay)
		}
		for _, id := range ids {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			outcome := d.Deliver(ctx, id)
			cancel()
			d.inFlight.Add(-1)
			d.logger.Debug("通知投递完成", zap.String("id", id), zap.Int("outcome", int(outcome)))
		}
	}()
}

func (d *notificationDispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

func (d *notificationDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ────────────────────── Deliver ──────────────────────

func (d *notificationDispatcher) Deliver(ctx context.Context, id string) DeliveryOutcome {
	ctx, span := tracer.Start(ctx, "notification.deliver")
	span.SetAttributes(attribute.String("notification.id", id))
	defer span.End()

	// 领取租约与单次投递超时一致，进程崩溃后租约到期可被补发
	n, err := d.repo.EmailNotification.Claim(ctx, id, d.timeout)
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
			d.logger.Error("领取通知失败", zap.String("id", id), zap.Error(err))
		}
		return OutcomeSkipped
	}

	sendErr := d.provider.Send(ctx, toMessage(n))
	if sendErr == nil {
		if err := d.repo.EmailNotification.MarkSent(ctx, id, d.now().UTC()); err != nil {
			d.logger.Error("更新通知状态失败", zap.String("id", id), zap.Error(err))
		}
		return OutcomeSent
	}

	span.RecordError(sendErr)
	span.SetStatus(codes.Error, sendErr.Error())

	if n.Attempts >= n.MaxAttempts {
		d.logger.Warn("通知重试次数耗尽",
			zap.String("id", id),
			zap.Int("attempts", n.Attempts),
			zap.Error(sendErr),
		)
		if err := d.repo.EmailNotification.MarkDead(ctx, id, sendErr.Error()); err != nil {
			d.logger.Error("更新通知状态失败", zap.String("id", id), zap.Error(err))
		}
		return OutcomeDead
	}

	next := d.now().UTC().Add(backoff(d.cfg.BackoffBase, n.Attempts))
	d.logger.Warn("通知发送失败，等待重试",
		zap.String("id", id),
		zap.Int("attempts", n.Attempts),
		zap.Time("next_attempt_at", next),
		zap.Error(sendErr),
	)
	if err := d.repo.EmailNotification.MarkRetry(ctx, id, sendErr.Error(), next); err != nil {
		d.logger.Error("更新通知状态失败", zap.String("id", id), zap.Error(err))
	}
	return OutcomeRetrying
}

// backoff base * 2^(attempts-1)，上限 1 小时
func backoff(base time.Duration, attempts int) time.Duration {
	if base <= 0 {
		base = time.Minute
	}
	if attempts < 1 {
		attempts = 1
	}
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// ────────────────────── ProcessPending ──────────────────────

func (d *notificationDispatcher) ProcessPending(ctx context.Context) (*dto.ProcessPendingResponse, error) {
	batch := d.cfg.SweepBatch
	if batch <= 0 {
		batch = 10
	}
	due, err := d.repo.EmailNotification.ListDue(ctx, d.now().UTC().Add(-d.cfg.SweepMinAge), batch)
	if err != nil {
		d.logger.Error("查询待补发通知失败", zap.Error(err))
		return nil, err
	}

	result := &dto.ProcessPendingResponse{Processed: len(due)}
	for i := range due {
		deliverCtx, cancel := context.WithTimeout(ctx, d.timeout)
		outcome := d.Deliver(deliverCtx, due[i].ID)
		cancel()

		switch outcome {
		case OutcomeSent:
			result.Sent++
		case OutcomeRetrying:
			result.Retrying++
		case OutcomeDead:
			result.Dead++
		default:
			result.Skipped++
		}
	}

	if result.Processed > 0 {
		d.logger.Info("补发待处理通知",
			zap.Int("processed", result.Processed),
			zap.Int("sent", result.Sent),
			zap.Int("retrying", result.Retrying),
			zap.Int("dead", result.Dead),
		)
	}
	return result, nil
}

// notificationIDs 提取通知行 ID
func notificationIDs(items []model.EmailNotification) []string {
	ids := make([]string, 0, len(items))
	for i := range items {
		if items[i].ID != "" {
			ids = append(ids, items[i].ID)
		}
	}
	return ids
}

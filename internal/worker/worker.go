// Package worker 后台定时任务：补发滞留通知、每日访问报告与通知清理
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	pkgerrors "github.com/bitandsolution/stadium-hospitality-manager/pkg/errors"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/redis"
)

const (
	sweepLockKey   = "notification-sweep"
	dailyOnceTTL   = 48 * time.Hour
	dailyCheckTick = time.Minute
	taskTimeout    = 2 * time.Minute
)

// Sweeper 补发 pending 通知
type Sweeper interface {
	ProcessPending(ctx context.Context) (*dto.ProcessPendingResponse, error)
}

// Reporter 发送某日的访问报告
type Reporter interface {
	SendDailyReport(ctx context.Context, day time.Time) (*dto.BatchSendResponse, error)
}

// Cleaner 清理过期通知
type Cleaner interface {
	Cleanup(ctx context.Context, days int) (*dto.CleanupResponse, error)
}

// Worker 后台任务调度
// 多实例部署时由 Redis 锁保证同一时刻只有一个实例补发，日报由一次性标记保证每天只发一次
type Worker struct {
	sweeper  Sweeper
	reporter Reporter
	cleaner  Cleaner
	rdb      *redis.Client
	cfg      config.NotificationConfig
	reportAt int // 当天分钟数
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time

	lastDaily string // 本实例已执行日报的日期（无 Redis 时去重）
}

// New 创建 Worker，rdb 可为 nil
func New(
	cfg config.NotificationConfig,
	sweeper Sweeper,
	reporter Reporter,
	cleaner Cleaner,
	rdb *redis.Client,
	loc *time.Location,
	logger *zap.Logger,
) (*Worker, error) {
	at, err := time.Parse("15:04", cfg.DailyReportAt)
	if err != nil {
		return nil, errors.New("daily_report_at 格式应为 HH:MM")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Worker{
		sweeper:  sweeper,
		reporter: reporter,
		cleaner:  cleaner,
		rdb:      rdb,
		cfg:      cfg,
		reportAt: at.Hour()*60 + at.Minute(),
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start 启动后台循环，ctx 取消后退出；返回的 channel 在循环结束时关闭
func (w *Worker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.run(ctx)
	}()
	return done
}

func (w *Worker) run(ctx context.Context) {
	interval := w.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	sweepTicker := time.NewTicker(interval)
	defer sweepTicker.Stop()
	dailyTicker := time.NewTicker(dailyCheckTick)
	defer dailyTicker.Stop()

	w.logger.Info("后台任务已启动",
		zap.Duration("sweep_interval", interval),
		zap.String("daily_report_at", w.cfg.DailyReportAt),
		zap.String("timezone", w.loc.String()),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("后台任务已停止")
			return
		case <-sweepTicker.C:
			w.Sweep(ctx)
		case <-dailyTicker.C:
			w.RunDaily(ctx)
		}
	}
}

// ────────────────────── Sweep ──────────────────────

// Sweep 在分布式锁保护下补发一批滞留通知，锁被占用时跳过本轮
func (w *Worker) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	lock, err := w.rdb.AcquireLock(ctx, sweepLockKey, w.lockTTL())
	if err != nil {
		if errors.Is(err, pkgerrors.ErrLockNotAcquired) {
			w.logger.Debug("补发任务由其他实例执行，跳过")
			return
		}
		w.logger.Warn("获取补发锁失败，跳过本轮", zap.Error(err))
		return
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			w.logger.Warn("释放补发锁失败", zap.Error(err))
		}
	}()

	result, err := w.sweeper.ProcessPending(ctx)
	if err != nil {
		w.logger.Error("补发通知失败", zap.Error(err))
		return
	}
	if result.Processed > 0 {
		w.logger.Info("补发通知",
			zap.Int("processed", result.Processed),
			zap.Int("sent", result.Sent),
			zap.Int("retrying", result.Retrying),
			zap.Int("dead", result.Dead),
		)
	}
}

func (w *Worker) lockTTL() time.Duration {
	if w.cfg.SweepInterval > 0 {
		return w.cfg.SweepInterval
	}
	return time.Minute
}

// ────────────────────── Daily ──────────────────────

// dailyDue 到达日报时间且今天尚未执行时返回今天的日期键
func (w *Worker) dailyDue(now time.Time) (string, bool) {
	local := now.In(w.loc)
	if local.Hour()*60+local.Minute() < w.reportAt {
		return "", false
	}
	key := local.Format("2006-01-02")
	if key == w.lastDaily {
		return "", false
	}
	return key, true
}

// RunDaily 到点后发送前一天的访问报告并清理过期通知，每天只执行一次
func (w *Worker) RunDaily(ctx context.Context) {
	now := w.now()
	key, due := w.dailyDue(now)
	if !due {
		return
	}

	first, err := w.rdb.MarkOnce(ctx, "daily-report:"+key, dailyOnceTTL)
	if err != nil {
		w.logger.Warn("设置日报标记失败，稍后重试", zap.Error(err))
		return
	}
	w.lastDaily = key
	if !first {
		w.logger.Debug("今日日报已由其他实例发送", zap.String("date", key))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	yesterday := now.In(w.loc).AddDate(0, 0, -1)
	if _, err := w.reporter.SendDailyReport(ctx, yesterday); err != nil {
		w.logger.Error("发送日报失败", zap.String("date", key), zap.Error(err))
	}

	resp, err := w.cleaner.Cleanup(ctx, w.cfg.RetentionDays)
	if err != nil {
		w.logger.Error("清理过期通知失败", zap.Error(err))
		return
	}
	w.logger.Info("清理过期通知", zap.Int64("deleted", resp.Deleted), zap.Int("retention_days", w.cfg.RetentionDays))
}

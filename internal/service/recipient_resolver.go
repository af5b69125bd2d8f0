package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
)

// ResolvedRecipient 收件人及其最早可投递时间
// DeferUntil 非空表示当前处于免打扰时段，通知需延后到该时刻
type ResolvedRecipient struct {
	model.Recipient
	DeferUntil *time.Time
}

// RecipientResolver 统一的通知收件人解析（所有事件类型共用同一存储过程）
type RecipientResolver interface {
	Resolve(ctx context.Context, eventType, priority string, now time.Time) ([]ResolvedRecipient, error)
}

type recipientResolver struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewRecipientResolver 创建 RecipientResolver 实例，loc 为免打扰时段所在时区
func NewRecipientResolver(repo *repository.Repository, loc *time.Location, logger *zap.Logger) RecipientResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &recipientResolver{repo: repo, loc: loc, logger: logger}
}

func (r *recipientResolver) Resolve(ctx context.Context, eventType, priority string, now time.Time) ([]ResolvedRecipient, error) {
	recipients, err := r.repo.Recipient.Resolve(ctx, eventType)
	if err != nil {
		return nil, err
	}

	result := make([]ResolvedRecipient, 0, len(recipients))
	for _, rc := range recipients {
		item := ResolvedRecipient{Recipient: rc}
		// 高优先级不受免打扰限制
		if priority != model.PriorityHigh {
			until, quiet, err := quietUntil(rc.QuietHoursStart, rc.QuietHoursEnd, now.In(r.loc))
			if err != nil {
				r.logger.Warn("免打扰时段格式无效，忽略", zap.String("user_id", rc.UserID), zap.Error(err))
			} else if quiet {
				until := until
				item.DeferUntil = &until
			}
		}
		result = append(result, item)
	}
	return result, nil
}

// quietUntil 判断 now 是否处于 [start, end) 免打扰窗口内，并返回窗口结束时刻
// start > end 表示跨越午夜；start == end 或任一为空视为未设置
func quietUntil(start, end *string, now time.Time) (time.Time, bool, error) {
	if start == nil || end == nil || *start == "" || *end == "" {
		return time.Time{}, false, nil
	}
	s, err := parseClock(*start)
	if err != nil {
		return time.Time{}, false, err
	}
	e, err := parseClock(*end)
	if err != nil {
		return time.Time{}, false, err
	}
	if s == e {
		return time.Time{}, false, nil
	}

	cur := now.Hour()*60 + now.Minute()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if s < e {
		if cur >= s && cur < e {
			return midnight.Add(time.Duration(e) * time.Minute), true, nil
		}
		return time.Time{}, false, nil
	}

	// 跨午夜，如 22:00-07:00
	switch {
	case cur >= s:
		return midnight.AddDate(0, 0, 1).Add(time.Duration(e) * time.Minute), true, nil
	case cur < e:
		return midnight.Add(time.Duration(e) * time.Minute), true, nil
	}
	return time.Time{}, false, nil
}

// parseClock "HH:MM" → 当天分钟数
func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("时间格式应为 HH:MM: %q", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

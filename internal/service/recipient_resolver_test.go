package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"07:30", 450, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"7h", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseClock(%q) 错误期望=%v，实际=%v", tt.in, tt.wantErr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseClock(%q) 期望=%d，实际=%d", tt.in, tt.want, got)
		}
	}
}

func TestQuietUntil(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2026, 3, 14, h, m, 0, 0, time.UTC) }
	next := func(h, m int) time.Time { return time.Date(2026, 3, 15, h, m, 0, 0, time.UTC) }

	tests := []struct {
		name      string
		start     *string
		end       *string
		now       time.Time
		wantQuiet bool
		wantUntil time.Time
	}{
		{"未设置", nil, nil, day(3, 0), false, time.Time{}},
		{"仅设置开始", ptr("22:00"), nil, day(23, 0), false, time.Time{}},
		{"起止相同", ptr("08:00"), ptr("08:00"), day(8, 0), false, time.Time{}},
		{"当日窗口内", ptr("13:00"), ptr("15:00"), day(14, 10), true, day(15, 0)},
		{"当日窗口起点", ptr("13:00"), ptr("15:00"), day(13, 0), true, day(15, 0)},
		{"当日窗口终点不含", ptr("13:00"), ptr("15:00"), day(15, 0), false, time.Time{}},
		{"跨午夜前半段", ptr("22:00"), ptr("07:00"), day(23, 30), true, next(7, 0)},
		{"跨午夜后半段", ptr("22:00"), ptr("07:00"), day(2, 15), true, day(7, 0)},
		{"跨午夜窗口外", ptr("22:00"), ptr("07:00"), day(12, 0), false, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			until, quiet, err := quietUntil(tt.start, tt.end, tt.now)
			if err != nil {
				t.Fatalf("quietUntil 不应出错: %v", err)
			}
			if quiet != tt.wantQuiet {
				t.Fatalf("期望 quiet=%v，实际=%v", tt.wantQuiet, quiet)
			}
			if quiet && !until.Equal(tt.wantUntil) {
				t.Errorf("期望结束于 %v，实际=%v", tt.wantUntil, until)
			}
		})
	}
}

func TestQuietUntil_InvalidFormat(t *testing.T) {
	if _, _, err := quietUntil(ptr("late"), ptr("07:00"), time.Now()); err == nil {
		t.Error("非法格式应返回错误")
	}
}

func TestRecipientResolver_Resolve(t *testing.T) {
	store := newMockStore()
	resolver := NewRecipientResolver(store.repo(), time.UTC, zap.NewNop())
	now := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)

	store.recipients.byEvent[model.NotificationTypeGuestCheckIn] = []model.Recipient{
		{UserID: "a", Email: "a@stadium.com", QuietHoursStart: ptr("22:00"), QuietHoursEnd: ptr("07:00")},
		{UserID: "b", Email: "b@stadium.com"},
		{UserID: "c", Email: "c@stadium.com", QuietHoursStart: ptr("bad"), QuietHoursEnd: ptr("07:00")},
	}

	got, err := resolver.Resolve(context.Background(), model.NotificationTypeGuestCheckIn, model.PriorityMedium, now)
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("期望 3 个收件人，实际=%d", len(got))
	}
	if got[0].DeferUntil == nil || !got[0].DeferUntil.Equal(time.Date(2026, 3, 15, 7, 0, 0, 0, time.UTC)) {
		t.Errorf("a 应延后至次日 07:00，实际=%v", got[0].DeferUntil)
	}
	if got[1].DeferUntil != nil {
		t.Error("b 未设置免打扰，不应延后")
	}
	if got[2].DeferUntil != nil {
		t.Error("c 免打扰格式无效，应忽略")
	}

	// 高优先级忽略免打扰
	store.recipients.byEvent[model.NotificationTypeSystemAlert] = store.recipients.byEvent[model.NotificationTypeGuestCheckIn]
	got, err = resolver.Resolve(context.Background(), model.NotificationTypeSystemAlert, model.PriorityHigh, now)
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	for _, r := range got {
		if r.DeferUntil != nil {
			t.Errorf("高优先级不应延后，%s=%v", r.Email, r.DeferUntil)
		}
	}
}

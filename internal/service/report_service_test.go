package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

func TestDayBounds(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("缺少时区数据: %v", err)
	}
	// UTC 23:30 在罗马已是次日
	start, end := dayBounds(time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC), rome)
	if want := time.Date(2026, 3, 15, 0, 0, 0, 0, rome); !start.Equal(want) {
		t.Errorf("期望起点 %v，实际=%v", want, start)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("期望区间 24h，实际=%v", end.Sub(start))
	}
}

func TestReportService_SendDailyReport(t *testing.T) {
	provider := &fakeProvider{}
	store := newMockStore()
	logger := zap.NewNop()
	repo := store.repo()
	resolver := NewRecipientResolver(repo, time.UTC, logger)
	email := NewEmailService(testConfig(), repo, provider, resolver, time.UTC, logger)
	svc := NewReportService(repo, email, resolver, time.UTC, logger)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	room, hostess := "OLYMPIA", "Giulia Verdi"
	store.audit.activity = []model.ActivityRow{
		{Action: model.AuditActionCheckIn, CreatedAt: day.Add(19 * time.Hour), RoomName: &room, UserFullName: &hostess},
		{Action: model.AuditActionCheckOut, CreatedAt: day.Add(22 * time.Hour), RoomName: &room, UserFullName: &hostess},
		// 次日数据不计入
		{Action: model.AuditActionCheckIn, CreatedAt: day.Add(25 * time.Hour), RoomName: &room, UserFullName: &hostess},
	}
	store.recipients.byEvent[model.NotificationTypeDailyReport] = []model.Recipient{
		{UserID: "admin-001", Email: "admin@stadium.com", FullName: "Anna Admin"},
	}

	result, err := svc.SendDailyReport(context.Background(), day.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("SendDailyReport 应成功: %v", err)
	}
	if result.Recipients != 1 || result.Sent != 1 {
		t.Errorf("期望发送 1 封，实际=%+v", result)
	}

	msgs := provider.messages()
	if len(msgs) != 1 {
		t.Fatalf("期望 1 封邮件，实际=%d", len(msgs))
	}
	if !strings.Contains(msgs[0].HTML, "<strong>OLYMPIA:</strong> 1 check-in, 1 check-out") {
		t.Errorf("日报正文应包含接待厅统计")
	}
	if !strings.Contains(msgs[0].Subject, "14/3/2026") {
		t.Errorf("日报应显示报告日期")
	}

	rows := store.notifications.all()
	if len(rows) != 1 || rows[0].Type != model.NotificationTypeDailyReport || rows[0].Priority != model.PriorityLow {
		t.Errorf("期望一条低优先级日报通知，实际=%+v", rows)
	}
}

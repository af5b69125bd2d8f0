package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	pkgerrors "github.com/bitandsolution/stadium-hospitality-manager/pkg/errors"
)

func setupTestDispatcher(provider *fakeProvider) (NotificationDispatcher, *mockStore) {
	store := newMockStore()
	return NewNotificationDispatcher(testConfig(), store.repo(), provider, zap.NewNop()), store
}

func seedNotification(t *testing.T, store *mockStore, maxAttempts int) string {
	t.Helper()
	n := &model.EmailNotification{
		Recipient:   "admin@stadium.com",
		Type:        model.NotificationTypeSystemAlert,
		Subject:     "Alert",
		Content:     "<p>body</p>",
		Priority:    model.PriorityHigh,
		Status:      model.NotificationStatusPending,
		Metadata:    map[string]interface{}{},
		MaxAttempts: maxAttempts,
	}
	if err := store.notifications.Create(context.Background(), n); err != nil {
		t.Fatalf("准备通知失败: %v", err)
	}
	return n.ID
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		base     time.Duration
		attempts int
		want     time.Duration
	}{
		{time.Minute, 1, time.Minute},
		{time.Minute, 2, 2 * time.Minute},
		{time.Minute, 3, 4 * time.Minute},
		{time.Minute, 7, time.Hour},
		{time.Minute, 20, time.Hour},
		{0, 1, time.Minute},
		{30 * time.Second, 0, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(tt.base, tt.attempts); got != tt.want {
			t.Errorf("backoff(%v, %d) 期望=%v，实际=%v", tt.base, tt.attempts, tt.want, got)
		}
	}
}

func TestDispatcher_Deliver_Sent(t *testing.T) {
	provider := &fakeProvider{}
	d, store := setupTestDispatcher(provider)
	id := seedNotification(t, store, 3)

	if got := d.Deliver(context.Background(), id); got != OutcomeSent {
		t.Fatalf("期望 OutcomeSent，实际=%d", got)
	}
	n, _ := store.notifications.GetByID(context.Background(), id)
	if n.Status != model.NotificationStatusSent || n.SentAt == nil {
		t.Errorf("期望 sent 且有 sent_at，实际=%s/%v", n.Status, n.SentAt)
	}

	// 已终结的行不会再次投递
	if got := d.Deliver(context.Background(), id); got != OutcomeSkipped {
		t.Errorf("重复投递期望 OutcomeSkipped，实际=%d", got)
	}
	if len(provider.messages()) != 1 {
		t.Errorf("期望只发送一次，实际=%d", len(provider.messages()))
	}
}

func TestDispatcher_Deliver_RetryThenDead(t *testing.T) {
	provider := &fakeProvider{err: errors.New("smtp 503")}
	d, store := setupTestDispatcher(provider)
	ctx := context.Background()
	id := seedNotification(t, store, 2)

	before := time.Now().UTC()
	if got := d.Deliver(ctx, id); got != OutcomeRetrying {
		t.Fatalf("首次失败期望 OutcomeRetrying，实际=%d", got)
	}
	n, _ := store.notifications.GetByID(ctx, id)
	if n.Status != model.NotificationStatusPending {
		t.Errorf("重试中应保持 pending，实际=%s", n.Status)
	}
	if n.LastError == nil || *n.LastError != "smtp 503" {
		t.Errorf("期望记录 last_error，实际=%v", n.LastError)
	}
	if n.NextAttemptAt.Before(before.Add(time.Minute)) {
		t.Errorf("下次尝试应至少推迟 1 分钟，实际=%v", n.NextAttemptAt)
	}

	// 未到期不可领取
	if got := d.Deliver(ctx, id); got != OutcomeSkipped {
		t.Errorf("未到期期望 OutcomeSkipped，实际=%d", got)
	}

	store.notifications.makeDue(id, time.Second)
	if got := d.Deliver(ctx, id); got != OutcomeDead {
		t.Fatalf("次数耗尽期望 OutcomeDead，实际=%d", got)
	}
	n, _ = store.notifications.GetByID(ctx, id)
	if n.Status != model.NotificationStatusDead || n.Attempts != 2 {
		t.Errorf("期望 dead 且 attempts=2，实际=%s/%d", n.Status, n.Attempts)
	}
}

func TestDispatcher_StatusOnlyLeavesPending(t *testing.T) {
	_, store := setupTestDispatcher(&fakeProvider{})
	ctx := context.Background()
	id := seedNotification(t, store, 3)

	if err := store.notifications.MarkFailed(ctx, id, "boom"); err != nil {
		t.Fatalf("MarkFailed 应成功: %v", err)
	}
	if err := store.notifications.MarkSent(ctx, id, time.Now()); !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Errorf("failed → sent 期望 ErrInvalidTransition，实际: %v", err)
	}
}

func TestDispatcher_ProcessPending(t *testing.T) {
	provider := &fakeProvider{}
	d, store := setupTestDispatcher(provider)
	ctx := context.Background()

	oldID := seedNotification(t, store, 3)
	store.notifications.makeDue(oldID, 10*time.Minute)
	// 新建不足 sweep_min_age 的行留给即时投递
	freshID := seedNotification(t, store, 3)

	result, err := d.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending 应成功: %v", err)
	}
	if result.Processed != 1 || result.Sent != 1 {
		t.Errorf("期望 processed=1 sent=1，实际=%+v", result)
	}
	fresh, _ := store.notifications.GetByID(ctx, freshID)
	if fresh.Status != model.NotificationStatusPending {
		t.Errorf("新行不应被补发，实际=%s", fresh.Status)
	}
}

func TestDispatcher_DispatchAndWait(t *testing.T) {
	provider := &fakeProvider{}
	d, store := setupTestDispatcher(provider)
	ids := []string{seedNotification(t, store, 3), seedNotification(t, store, 3)}

	d.Dispatch(ids)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait 应成功: %v", err)
	}
	if len(provider.messages()) != 2 {
		t.Errorf("期望发送 2 封，实际=%d", len(provider.messages()))
	}
	if d.InFlight() != 0 {
		t.Errorf("期望 in-flight=0，实际=%d", d.InFlight())
	}
}

func TestDispatchable_SkipsDeferred(t *testing.T) {
	at := time.Now().Add(time.Hour)
	items := []model.EmailNotification{
		{ID: "a"},
		{ID: "b", ScheduledFor: &at},
		{ID: ""},
	}
	got := dispatchable(items)
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("期望仅 [a]，实际=%v", got)
	}
}

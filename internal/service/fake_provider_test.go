package service

import (
	"context"
	"sync"
	"time"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/mailer"
)

// fakeProvider 记录发送的邮件；release 非 nil 时每次发送阻塞到通道关闭
type fakeProvider struct {
	mu      sync.Mutex
	sent    []mailer.Message
	err     error
	release chan struct{}
	started chan struct{}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Send(ctx context.Context, msg mailer.Message) error {
	if p.started != nil {
		select {
		case p.started <- struct{}{}:
		default:
		}
	}
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakeProvider) messages() []mailer.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mailer.Message(nil), p.sent...)
}

// testConfig 测试用配置：投递无延迟、3 次重试
func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-0123456789",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Mail: config.MailConfig{Provider: "resend", Timeout: time.Second},
		Notification: config.NotificationConfig{
			DispatchDelay: 0,
			SweepMinAge:   5 * time.Minute,
			SweepBatch:    10,
			MaxAttempts:   3,
			BackoffBase:   time.Minute,
			RetentionDays: 90,
			DailyReportAt: "08:00",
			Timezone:      "UTC",
		},
		Import: config.ImportConfig{MaxRows: 100},
	}
}

func ptr[T any](v T) *T { return &v }

// Package mailer 事务邮件发送：按配置选择 Resend / SendGrid / 云函数中转
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
)

// ErrUnknownProvider 不支持的服务商
var ErrUnknownProvider = errors.New("不支持的邮件服务商")

// Message 待发送邮件
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Provider 邮件服务商
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Sender 发件人
type Sender struct {
	Email string
	Name  string
}

// String 格式化为 "Name <email>"
func (s Sender) String() string {
	if s.Name == "" {
		return s.Email
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// NewProvider 按配置创建服务商，进程生命周期内只选择一次
func NewProvider(cfg *config.MailConfig) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	from := Sender{Email: cfg.FromEmail, Name: cfg.FromName}

	switch cfg.Provider {
	case "resend":
		return &resendProvider{http: client, url: cfg.ResendURL, apiKey: cfg.APIKey, from: from}, nil
	case "sendgrid":
		return &sendGridProvider{http: client, url: cfg.SendGridURL, apiKey: cfg.APIKey, from: from}, nil
	case "function":
		return &functionProvider{http: client, url: cfg.FunctionURL, apiKey: cfg.APIKey, from: from}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// ── HTTP 辅助 ──

var tracer = otel.Tracer("github.com/bitandsolution/stadium-hospitality-manager/pkg/mailer")

// StatusError 服务商返回非 2xx
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s 返回 HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

const maxErrorBody = 512

// postJSON 以 Bearer 鉴权 POST JSON，2xx 视为成功
func postJSON(ctx context.Context, client *http.Client, provider, url, apiKey string, payload interface{}) (err error) {
	ctx, span := tracer.Start(ctx, "mailer.send")
	span.SetAttributes(attribute.String("mail.provider", provider))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化邮件请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构造邮件请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s 请求失败: %w", provider, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(excerpt)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

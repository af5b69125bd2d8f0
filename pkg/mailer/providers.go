package mailer

import (
	"context"
	"net/http"
)

// ────────────────────── Resend ──────────────────────

type resendProvider struct {
	http   *http.Client
	url    string
	apiKey string
	from   Sender
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (p *resendProvider) Name() string { return "resend" }

func (p *resendProvider) Send(ctx context.Context, msg Message) error {
	return postJSON(ctx, p.http, p.Name(), p.url, p.apiKey, resendPayload{
		From:    p.from.String(),
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
}

// ────────────────────── SendGrid ──────────────────────

type sendGridProvider struct {
	http   *http.Client
	url    string
	apiKey string
	from   Sender
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To      []sendGridAddress `json:"to"`
	Subject string            `json:"subject"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPayload struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Content          []sendGridContent         `json:"content"`
}

func (p *sendGridProvider) Name() string { return "sendgrid" }

func (p *sendGridProvider) Send(ctx context.Context, msg Message) error {
	return postJSON(ctx, p.http, p.Name(), p.url, p.apiKey, sendGridPayload{
		Personalizations: []sendGridPersonalization{{
			To:      []sendGridAddress{{Email: msg.To, Name: msg.ToName}},
			Subject: msg.Subject,
		}},
		From:    sendGridAddress{Email: p.from.Email, Name: p.from.Name},
		Content: []sendGridContent{{Type: "text/html", Value: msg.HTML}},
	})
}

// ────────────────────── 云函数中转 ──────────────────────

// functionProvider 调用部署在边缘/Serverless 平台的 send-email 函数
type functionProvider struct {
	http   *http.Client
	url    string
	apiKey string
	from   Sender
}

type functionPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	From    string `json:"from"`
}

func (p *functionProvider) Name() string { return "function" }

func (p *functionProvider) Send(ctx context.Context, msg Message) error {
	return postJSON(ctx, p.http, p.Name(), p.url, p.apiKey, functionPayload{
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		From:    p.from.String(),
	})
}

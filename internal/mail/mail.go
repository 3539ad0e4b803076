// Package mail 发送验证码等事务性邮件。
package mail

import (
	"context"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"
)

// Message 是一封待发送的邮件。
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages to an external mail relay.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// OTPMessage 构造验证码邮件；purpose 为 "registration" 或 "reset"。
func OTPMessage(to, code, purpose string, ttl time.Duration) Message {
	subject := "Your Mindful Path verification code"
	intro := "Use the code below to finish creating your account."
	if purpose == "reset" {
		subject = "Reset your Mindful Path password"
		intro = "Use the code below to reset your password."
	}
	minutes := int(ttl.Minutes())

	text := fmt.Sprintf("%s\n\n%s\n\nThe code expires in %d minutes.\n", intro, code, minutes)
	body := fmt.Sprintf(`<!doctype html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif; line-height:1.4;">
    <p>%s</p>
    <p style="font-size:24px; letter-spacing:6px;"><strong>%s</strong></p>
    <p style="color:#555; font-size:12px;">The code expires in %d minutes.</p>
  </body>
</html>`, html.EscapeString(intro), html.EscapeString(code), minutes)

	return Message{To: to, Subject: subject, Text: text, HTML: body}
}

// LogMailer 在未配置 SMTP 时使用，只记录日志不真正投递。
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger.Named("mail")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("smtp disabled, message not delivered",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

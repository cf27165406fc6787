// Package mail 找回密码邮件发送
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/leonard05717/appointment/config"
)

// Sender 邮件发送接口
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSender 按配置创建发送器，未配置 SMTP 时只记录日志
func NewSender(cfg *config.MailConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled() {
		return &logSender{logger: logger}
	}
	return &smtpSender{cfg: cfg, logger: logger}
}

type smtpSender struct {
	cfg    *config.MailConfig
	logger *zap.Logger
}

func (s *smtpSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, BuildMessage(s.cfg.From, to, subject, body)); err != nil {
		s.logger.Error("发送邮件失败", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

type logSender struct {
	logger *zap.Logger
}

func (s *logSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("SMTP 未配置，邮件仅记录日志",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// BuildMessage 组装纯文本邮件
func BuildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

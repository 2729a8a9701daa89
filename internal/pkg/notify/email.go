package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/Varaprasad-34/college-job-portal/internal/config"
)

// Mailer 定义邮件发送接口。
type Mailer interface {
	SendVerificationEmail(toEmail, name, token string) error
	SendPasswordReset(toEmail, name, token string) error
}

// EmailNotifier 通过 SMTP 发送验证与密码重置邮件。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendVerificationEmail 发送邮箱验证邮件。
func (n *EmailNotifier) SendVerificationEmail(toEmail, name, token string) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Verify your email</h2>
    <p>Hi %s, welcome to the college job portal.</p>
    <p>Your verification token:</p>
    <div style="font-size: 20px; font-weight: bold; letter-spacing: 2px; word-break: break-all;">%s</div>
  </div>
</body>
</html>`, name, token)

	return n.send(toEmail, "[JobPortal] Verify your email", body)
}

// SendPasswordReset 发送密码重置邮件。
func (n *EmailNotifier) SendPasswordReset(toEmail, name, token string) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Password reset</h2>
    <p>Hi %s, use the token below to reset your password. It expires in one hour.</p>
    <div style="font-size: 20px; font-weight: bold; letter-spacing: 2px; word-break: break-all;">%s</div>
    <p>If you did not request this, you can ignore this email.</p>
  </div>
</body>
</html>`, name, token)

	return n.send(toEmail, "[JobPortal] Password reset", body)
}

func (n *EmailNotifier) send(toEmail, subject, htmlBody string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		return fmt.Errorf("email config missing")
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if n.logger != nil {
		n.logger.Info("email sent", slog.String("to", toEmail), slog.String("subject", subject))
	}
	return nil
}

package email

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/qs3c/powerplan_server/config"
)

// SendFunc 与 smtp.SendMail 签名一致，测试时替换
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	cfg  *config.EmailConfig
	send SendFunc
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg, send: smtp.SendMail}
}

// WithSendFunc 替换底层发送实现
func (s *Service) WithSendFunc(fn SendFunc) *Service {
	s.send = fn
	return s
}

// Enabled 未配置 SMTP 时所有发送都是空操作
func (s *Service) Enabled() bool {
	return s.cfg != nil && s.cfg.SMTPHost != ""
}

// SendRegistrationDecision 注册审核结果
func (s *Service) SendRegistrationDecision(to, fullName string, approved bool, comment string) error {
	if approved {
		return s.sendHTML(to, "Registration approved - Power Plan Portal", layout(
			"Welcome aboard",
			fmt.Sprintf("<p>Hi %s,</p><p>Your registration has been approved. You can now sign in and subscribe to power plans.</p>",
				html.EscapeString(fullName)),
		))
	}
	return s.sendHTML(to, "Registration rejected - Power Plan Portal", layout(
		"Registration rejected",
		fmt.Sprintf("<p>Hi %s,</p><p>Your registration was not approved.</p><p>Reason: %s</p>",
			html.EscapeString(fullName), html.EscapeString(comment)),
	))
}

// SendPlanDecision 订阅审核结果
func (s *Service) SendPlanDecision(to, fullName, planName string, approved bool, comment string) error {
	status := "approved"
	extra := ""
	if !approved {
		status = "rejected"
		extra = fmt.Sprintf("<p>Reason: %s</p>", html.EscapeString(comment))
	}
	return s.sendHTML(to, fmt.Sprintf("Plan request %s - Power Plan Portal", status), layout(
		"Plan request "+status,
		fmt.Sprintf("<p>Hi %s,</p><p>Your request for <b>%s</b> was %s.</p>%s",
			html.EscapeString(fullName), html.EscapeString(planName), status, extra),
	))
}

// SendExpiryAlert 订阅即将到期提醒
func (s *Service) SendExpiryAlert(to, fullName, planName string, endDate time.Time) error {
	return s.sendHTML(to, "Your power plan ends soon - Power Plan Portal", layout(
		"Plan ending soon",
		fmt.Sprintf("<p>Hi %s,</p><p>Your subscription to <b>%s</b> ends on %s.</p>",
			html.EscapeString(fullName), html.EscapeString(planName), endDate.Format("02/01/2006")),
	))
}

// SendStatementReady 月度账单归档完成
func (s *Service) SendStatementReady(to, fullName, url, amount string) error {
	return s.sendHTML(to, "Your power bill is ready - Power Plan Portal", layout(
		"Bill ready",
		fmt.Sprintf(`<p>Hi %s,</p><p>Your bill total is <b>%s</b>.</p><p><a href="%s">Download the bill</a></p>`,
			html.EscapeString(fullName), html.EscapeString(amount), html.EscapeString(url)),
	))
}

func layout(title, content string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">%s</h2>
        %s
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This message was sent automatically, please do not reply.</p>
    </div>
</body>
</html>
`, html.EscapeString(title), content)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	if !s.Enabled() || to == "" {
		return nil
	}

	headers := [][2]string{
		{"From", s.cfg.From},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return s.send(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}

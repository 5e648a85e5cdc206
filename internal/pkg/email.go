package pkg

import (
	"crypto/tls"
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，可与 Username 相同
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// SendEmail 多个收件人放在 Bcc，避免互相暴露邮箱
func SendEmail(cfg SMTPConfig, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", cfg.From)
	m.SetHeader("Bcc", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return d.DialAndSend(m)
}

func DecisionOpenedHTML(title string, closesAt time.Time) string {
	return fmt.Sprintf(`<p>Hello,</p><p>A new decision is open for voting: <b>%s</b>.</p><p>Voting closes at %s.</p>`,
		html.EscapeString(title), closesAt.UTC().Format("2006-01-02 15:04 MST"))
}

func DecisionClosedHTML(title, outcome string) string {
	body := fmt.Sprintf(`<p>Hello,</p><p>Voting on <b>%s</b> has closed.</p>`, html.EscapeString(title))
	if outcome != "" {
		body += fmt.Sprintf(`<p>Outcome: %s</p>`, html.EscapeString(outcome))
	}
	return body
}

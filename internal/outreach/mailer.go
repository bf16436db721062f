// Package outreach sends shelters an email asking which donation categories
// they need. Replies come back out of band; needs updates land through the
// shelter API.
package outreach

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"
)

// Config carries the SMTP settings, read from SMTP_* environment variables.
// With an incomplete config the mailer reports unconfigured and every send
// fails; demand queries are unaffected.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

func ConfigFromEnv() Config {
	cfg := Config{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		User:     os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return cfg
}

// sendFunc matches smtp.SendMail; tests swap in a recorder.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg  Config
	send sendFunc
}

func NewMailer(cfg Config) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// NewMailerForTest returns a mailer with the SMTP send call replaced.
func NewMailerForTest(cfg Config, send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) *Mailer {
	return &Mailer{cfg: cfg, send: send}
}

func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.User != "" && m.cfg.Password != ""
}

const outreachSubject = "Project Lend - What donations does your shelter need?"

const outreachTemplate = `Hello %s,

We hope this message finds you well! We're reaching out from Project Lend,
an autonomous food bank donation system.

We'd love to learn what types of donations your shelter currently needs so
we can help direct items your way. Our system sorts donations into these
categories:

  - Fruit (fresh produce, packaged fruit)
  - Snack (chips, granola bars, packaged snacks)
  - Drink (water, juice, beverages)

Could you reply and let us know which categories you need most right now?

%sThank you for the work you do in our community!

Best regards,
The Project Lend Team
`

// OutreachBody renders the standard ask-what-you-need email.
func OutreachBody(shelterName, customMessage string) string {
	customSection := ""
	if customMessage != "" {
		customSection = "Additional note: " + customMessage + "\n\n"
	}
	return fmt.Sprintf(outreachTemplate, shelterName, customSection)
}

// SendOutreach emails one shelter the category request.
func (m *Mailer) SendOutreach(shelterName, shelterEmail, customMessage string) error {
	if !m.Configured() {
		return fmt.Errorf("smtp not configured: set SMTP_HOST, SMTP_USER, SMTP_PASSWORD")
	}

	body := OutreachBody(shelterName, customMessage)
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + shelterEmail,
		"Subject: " + outreachSubject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := m.send(addr, auth, m.cfg.From, []string{shelterEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send outreach to %s: %w", shelterEmail, err)
	}
	return nil
}

package reporting

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/stackwatch/stackwatch/internal/config"
	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
)

// Window of changes covered by one periodic report.
const reportWindow = 7 * 24 * time.Hour

var reportTemplate = template.Must(template.New("report").Parse(`<html>
<body>
<h2>Security report{{if .Account}} for {{.Account}}{{end}}, {{.GeneratedAt.Format "2006-01-02"}}</h2>

<h3>Top issues</h3>
<table border="1" cellpadding="4">
<tr><th>Technology</th><th>Issue</th><th>Count</th></tr>
{{range .TopIssues}}<tr><td>{{.Technology}}</td><td>{{.Issue}}</td><td>{{.Count}}</td></tr>
{{end}}</table>

<h3>Technologies with the most open issues</h3>
<table border="1" cellpadding="4">
<tr><th>Technology</th><th>Count</th></tr>
{{range .TopTechnologies}}<tr><td>{{.Technology}}</td><td>{{.Count}}</td></tr>
{{end}}</table>

<h3>Recent changes with open issues</h3>
<table border="1" cellpadding="4">
<tr><th>Technology</th><th>Item</th><th>Account</th><th>Region</th><th>Score</th><th>Issue</th></tr>
{{range .RecentChanges}}<tr><td>{{.Technology}}</td><td>{{.Name}}</td><td>{{.Account}}</td><td>{{.Region}}</td><td>{{.Score}}</td><td>{{.Issue}}</td></tr>
{{end}}</table>

<h3>Recently resolved</h3>
<table border="1" cellpadding="4">
<tr><th>Technology</th><th>Item</th><th>Account</th><th>Score</th><th>Issue</th></tr>
{{range .RecentlyResolved}}<tr><td>{{.Technology}}</td><td>{{.Name}}</td><td>{{.Account}}</td><td>{{.Score}}</td><td>{{.Issue}}</td></tr>
{{end}}</table>

<h3>Open issues</h3>
<table border="1" cellpadding="4">
<tr><th>Technology</th><th>Item</th><th>Account</th><th>Region</th><th>Score</th><th>Issue</th><th>Notes</th></tr>
{{range .OpenIssues}}<tr><td>{{.Technology}}</td><td>{{.Name}}</td><td>{{.Account}}</td><td>{{.Region}}</td><td>{{.Score}}</td><td>{{.Issue}}</td><td>{{.Notes}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// sendFunc matches smtp.SendMail; replaced in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders and sends the periodic summary reports: one global
// report to the configured recipients, and one account-scoped report to
// each account's notification addresses.
type Mailer struct {
	cfg      config.MailerConfig
	service  *Service
	accounts account.Repository
	logger   *logger.Logger
	send     sendFunc
}

func NewMailer(cfg config.MailerConfig, service *Service, accounts account.Repository, log *logger.Logger) *Mailer {
	return &Mailer{cfg: cfg, service: service, accounts: accounts, logger: log, send: smtp.SendMail}
}

// Send builds the reports over the last week and mails them out.
func (m *Mailer) Send(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.logger.Info("Report mailer disabled, skipping")
		return nil
	}

	sent := 0
	if len(m.cfg.Recipients) > 0 {
		if err := m.sendSummary(ctx, nil, m.cfg.Recipients); err != nil {
			return err
		}
		sent++
	}

	accts, err := m.accounts.List(ctx, true)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	for _, acct := range accts {
		if len(acct.NotifyEmails) == 0 {
			continue
		}
		if err := m.sendSummary(ctx, []string{acct.Name}, acct.NotifyEmails); err != nil {
			return err
		}
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("report mailer enabled but no recipients configured")
	}
	return nil
}

func (m *Mailer) sendSummary(ctx context.Context, accounts, recipients []string) error {
	summary, err := m.service.BuildSummary(ctx, accounts, reportWindow)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	body, err := m.render(summary, recipients)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, recipients, body); err != nil {
		return fmt.Errorf("send report mail: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"account":    summary.Account,
		"recipients": len(recipients),
		"open":       len(summary.OpenIssues),
	}).Info("Report mail sent")
	return nil
}

func (m *Mailer) render(summary *Summary, recipients []string) ([]byte, error) {
	var html bytes.Buffer
	if err := reportTemplate.Execute(&html, summary); err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Security report %s", summary.GeneratedAt.Format("2006-01-02"))
	if summary.Account != "" {
		subject = fmt.Sprintf("Security report for %s %s", summary.Account, summary.GeneratedAt.Format("2006-01-02"))
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(html.Bytes())
	return msg.Bytes(), nil
}

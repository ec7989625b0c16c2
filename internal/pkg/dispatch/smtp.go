package dispatch

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"sort"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/config"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/notification"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxRetries = 3

// SMTPSender emails anomaly alerts to the ops address. Escalation level 2
// marks the subject so mail rules can route it.
type SMTPSender struct {
	cfg       config.SMTPConfig
	templates *template.Template
	logger    *slog.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, logger *slog.Logger) (*SMTPSender, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification templates: %w", err)
	}

	return &SMTPSender{
		cfg:       cfg,
		templates: tmpl,
		logger:    logger,
	}, nil
}

type alertEmailData struct {
	TenantID        string
	EmployeeID      string
	Kind            string
	EscalationLevel int
	Details         []alertDetail
}

type alertDetail struct {
	Key   string
	Value string
}

func (s *SMTPSender) Send(_ context.Context, req notification.Request) error {
	data := alertEmailData{
		TenantID:        req.TenantID,
		EmployeeID:      req.EmployeeID,
		Kind:            string(req.Kind),
		EscalationLevel: req.EscalationLevel,
	}
	for k, v := range req.Context {
		data.Details = append(data.Details, alertDetail{Key: k, Value: v})
	}
	sort.Slice(data.Details, func(i, j int) bool { return data.Details[i].Key < data.Details[j].Key })

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "anomaly_alert.html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	subject := fmt.Sprintf("Attendance alert: %s", subjectFor(req.Kind))
	if req.EscalationLevel > 1 {
		subject = "[ESCALATED] " + subject
	}

	return s.sendHTML(s.cfg.OpsEmail, subject, body.String())
}

func subjectFor(kind attendance.AnomalyKind) string {
	switch kind {
	case attendance.AnomalyMissingIn:
		return "missing clock-in"
	case attendance.AnomalyMissingOut:
		return "missing clock-out"
	case attendance.AnomalyLate:
		return "late arrival"
	case attendance.AnomalyAbsence:
		return "unreported absence"
	case attendance.AnomalyAbsencePartial:
		return "partial attendance"
	default:
		return string(kind)
	}
}

func (s *SMTPSender) sendHTML(to, subject, htmlBody string) error {
	headers := fmt.Sprintf("From: PointaFlex <%s>\r\n", s.cfg.From)
	headers += fmt.Sprintf("To: %s\r\n", to)
	headers += fmt.Sprintf("Subject: %s\r\n", subject)
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	headers += "\r\n"

	message := []byte(headers + htmlBody)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, message)
		if err == nil {
			s.logger.Info("alert email sent",
				slog.String("to", to),
				slog.String("subject", subject),
				slog.Int("attempt", attempt),
			)
			return nil
		}

		lastErr = err
		s.logger.Error("failed to send alert email",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt < maxRetries {
			time.Sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
	}

	return fmt.Errorf("failed to send alert email after %d attempts: %w", maxRetries, lastErr)
}

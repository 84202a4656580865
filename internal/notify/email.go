package notify

import (
	"context"
	"fmt"
	"strings"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/metrics"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"golang.org/x/time/rate"
)

// EmailClient is the part of the SendGrid client used for delivery.
type EmailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type EmailConfig struct {
	APIKey     string
	FromEmail  string
	FromName   string
	Recipients []string
	// MinKind filters out less severe notifications.
	MinKind domain.NotificationKind
	// PerMinute and Burst throttle outbound mail. Notifications over the
	// limit are dropped and logged.
	PerMinute int
	Burst     int
}

type emailNotifier struct {
	client  EmailClient
	cfg     EmailConfig
	limiter *rate.Limiter
}

// Email sends notifications to staff through SendGrid.
func Email(cfg EmailConfig) Notifier {
	return NewEmailWithClient(sendgrid.NewSendClient(cfg.APIKey), cfg)
}

func NewEmailWithClient(client EmailClient, cfg EmailConfig) Notifier {
	if cfg.MinKind == "" {
		cfg.MinKind = domain.NotificationWarning
	}
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 30
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &emailNotifier{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.PerMinute)/60), cfg.Burst),
	}
}

func (n *emailNotifier) Notify(ctx context.Context, kind domain.NotificationKind, message string) {
	if !AtLeast(kind, n.cfg.MinKind) || len(n.cfg.Recipients) == 0 {
		return
	}
	if !n.limiter.Allow() {
		metrics.IncNotification("email", "throttled")
		logger.WarnContext(ctx, "Email notification throttled", "kind", kind)
		return
	}

	subject := fmt.Sprintf("[camrent] %s: %s", strings.ToUpper(string(kind)), firstLine(message))
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(n.cfg.FromName, n.cfg.FromEmail))
	m.Subject = subject
	p := mail.NewPersonalization()
	for _, to := range n.cfg.Recipients {
		p.AddTos(mail.NewEmail("", to))
	}
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", message))

	logger.ExternalServiceCall("sendgrid", "send", "kind", kind, "recipients", len(n.cfg.Recipients))
	resp, err := n.client.SendWithContext(ctx, m)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err)
	if err != nil {
		metrics.IncNotification("email", "error")
		return
	}
	metrics.IncNotification("email", "ok")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

package delivery

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/pd15/saocontacts/internal/logging"
)

const defaultSendTimeout = 10 * time.Second

// MailgunConfig holds the account used to send mail.
type MailgunConfig struct {
	Domain  string
	APIKey  string
	APIBase string // empty keeps the library default
	From    string
	Timeout time.Duration
}

// Mailgun delivers through the Mailgun HTTP API.
type Mailgun struct {
	mg      mailgun.Mailgun
	from    string
	timeout time.Duration
	log     logging.Logger
}

func NewMailgun(cfg MailgunConfig, log logging.Logger) *Mailgun {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Mailgun{mg: mg, from: cfg.From, timeout: timeout, log: log.With("module", "delivery", "driver", "mailgun")}
}

func (m *Mailgun) Deliver(ctx context.Context, to, subject, body string) bool {
	message := m.mg.NewMessage(m.from, subject, body, to)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		m.log.Warn(ctx, "mailgun send failed", "subject", subject, "err", err)
		return false
	}
	m.log.Debug(ctx, "mailgun accepted message", "id", id)
	return true
}

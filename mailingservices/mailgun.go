package mailingservices

import (
	"context"
	"log"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/studiswap/studiswap/config"
)

// Mailgun is the email notification channel. Template rendering lives with
// the mail pipeline; this client only sends plain text.
type Mailgun struct {
	Client *mailgun.MailgunImpl
	from   string
}

func (m *Mailgun) Init(conf *config.Config) {
	if conf.MgDomain == "" || conf.MailgunApiKey == "" {
		log.Println("mailgun not configured, email notifications disabled")
		return
	}
	m.Client = mailgun.NewMailgun(conf.MgDomain, conf.MailgunApiKey)
	m.from = conf.MgEmailFrom
}

// Send delivers one plain-text message. A nil client is a configured-off
// no-op, not an error.
func (m *Mailgun) Send(recipient, subject, body string) error {
	if m.Client == nil {
		return nil
	}
	message := m.Client.NewMessage(m.from, subject, body, recipient)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _, err := m.Client.Send(ctx, message)
	return err
}

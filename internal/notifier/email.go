package notifier

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/weddingringring/wrr-sub001/internal/config"
	"github.com/weddingringring/wrr-sub001/internal/model"
)

type emailNotifier struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailNotifier(cfg config.SMTPConfig) Notifier {
	return &emailNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (n *emailNotifier) NotifyNumberAssigned(ctx context.Context, event *model.Event, venue *model.Venue, customer *model.Customer) error {
	if !event.HasPhoneNumber() {
		return fmt.Errorf("event %s has no phone number to announce", event.ID)
	}

	number := *event.PhoneNumber
	subject := fmt.Sprintf("Your guest message line for %s is ready", event.Name)
	body := fmt.Sprintf(
		"The phone number for %s is %s.\r\n\r\n"+
			"Guests can call it to leave a voice message. The line stays open "+
			"until %s.\r\n",
		event.Name, number, event.ReleaseScheduledFor.Format("2 January 2006"),
	)

	var sendErrs []error
	for _, recipient := range []string{customer.Email, venue.ContactEmail} {
		if recipient == "" {
			continue
		}
		m := gomail.NewMessage()
		m.SetHeader("From", n.from)
		m.SetHeader("To", recipient)
		m.SetHeader("Subject", subject)
		m.SetBody("text/plain", body)

		if err := n.dialer.DialAndSend(m); err != nil {
			sendErrs = append(sendErrs, fmt.Errorf("failed to notify %s: %w", recipient, err))
		}
	}

	if len(sendErrs) > 0 {
		return fmt.Errorf("number assignment notification: %v", sendErrs)
	}
	return nil
}

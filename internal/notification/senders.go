package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// SendFunc delivers one notification over a single channel.
type SendFunc func(ctx context.Context, n Notification) error

var (
	ErrInvalidRecipient = errors.New("invalid recipient")

	validate = validator.New()
)

// DefaultSenders returns the function table for every channel. Delivery is
// recorded in the process log; no external provider is integrated.
func DefaultSenders(log logrus.FieldLogger) map[Channel]SendFunc {
	return map[Channel]SendFunc{
		ChannelEmail: emailSender(log),
		ChannelSMS:   smsSender(log),
	}
}

func emailSender(log logrus.FieldLogger) SendFunc {
	return func(ctx context.Context, n Notification) error {
		if err := validate.VarCtx(ctx, n.Recipient, "required,email"); err != nil {
			return fmt.Errorf("%w: %q is not an email address", ErrInvalidRecipient, n.Recipient)
		}
		log.WithFields(logrus.Fields{
			"channel":   ChannelEmail,
			"recipient": n.Recipient,
			"subject":   n.Subject,
		}).Info("email sent")
		return nil
	}
}

func smsSender(log logrus.FieldLogger) SendFunc {
	return func(ctx context.Context, n Notification) error {
		digits := 0
		for _, r := range n.Recipient {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits < 7 || strings.ContainsRune(n.Recipient, '@') {
			return fmt.Errorf("%w: %q is not a phone number", ErrInvalidRecipient, n.Recipient)
		}
		log.WithFields(logrus.Fields{
			"channel":   ChannelSMS,
			"recipient": n.Recipient,
		}).Info("sms sent")
		return nil
	}
}

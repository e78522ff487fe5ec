package email

import "log/slog"

// LogSender is the sink used when SMTP is not configured: the message is
// logged, delivery is reported successful.
type LogSender struct{}

func (LogSender) Send(msg *Message) error {
	slog.Info("email (log sink)", "to", msg.To, "subject", msg.Subject)
	return nil
}

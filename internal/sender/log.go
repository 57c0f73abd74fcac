package sender

import (
	"context"
	"log/slog"
)

// LogSender logs OTP messages instead of delivering them. It is the default
// in development so the flow can be exercised without a mail relay.
// The body, which contains the code, is never logged.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a new log-only sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Name returns the name of this sender.
func (s *LogSender) Name() string {
	return "log"
}

// Send logs the delivery and always succeeds.
func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	s.logger.InfoContext(ctx, "log sender: message delivered",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

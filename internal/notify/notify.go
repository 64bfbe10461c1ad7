// Package notify delivers match notifications. Every transport treats an
// empty address or "none" as a request not to notify and returns nil.
package notify

import (
	"context"
	"log/slog"

	"github.com/erazemk/najdeno/internal/model"
)

// Notifier sends one HTML message.
type Notifier interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Transports selectable in the configuration.
const (
	TransportLog  = "log"
	TransportSMTP = "smtp"
	TransportAMQP = "amqp"
)

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to, subject, html string) error {
	if model.SkipNotify(to) {
		return nil
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "to", to, "subject", subject, "bytes", len(html))
	return nil
}

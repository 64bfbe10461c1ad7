package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/najdeno/internal/metrics"
	"github.com/erazemk/najdeno/internal/model"
)

// Dispatcher errors.
var (
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("notification dispatcher closed")
)

type message struct {
	to, subject, html string
}

// Dispatcher is a Notifier that queues messages for a background worker. Send
// never blocks: a full queue drops the message and returns ErrQueueFull.
type Dispatcher struct {
	next    Notifier
	queue   chan message
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher returns a dispatcher delivering through next with at most size
// queued messages. Each delivery gets its own timeout.
func NewDispatcher(next Notifier, size int, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		next:    next,
		queue:   make(chan message, size),
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

func (d *Dispatcher) Send(ctx context.Context, to, subject, html string) error {
	if model.SkipNotify(to) {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- message{to: to, subject: subject, html: html}:
		return nil
	default:
		d.logger.Warn("notification dropped, queue full", "to", to, "subject", subject)
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx is cancelled, then stops accepting
// new ones and delivers what is left.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()
			close(d.queue)
			for msg := range d.queue {
				d.deliver(msg)
			}
			return nil
		}
	}
}

func (d *Dispatcher) deliver(msg message) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.next.Send(ctx, msg.to, msg.subject, msg.html); err != nil {
		d.logger.Error("delivering notification", "to", msg.to, "error", err)
		d.metrics.Notification(metrics.Failed)
		return
	}
	d.metrics.Notification(metrics.Sent)
}

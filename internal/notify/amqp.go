package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/erazemk/najdeno/internal/model"
)

// Publisher is the part of *amqp.Channel the notifier uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Envelope is the JSON body published for an external mail worker.
type Envelope struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
}

// AMQPNotifier publishes notifications to a RabbitMQ exchange.
type AMQPNotifier struct {
	pub        Publisher
	exchange   string
	routingKey string
	now        func() time.Time

	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPNotifier publishes through pub. Use DialAMQP to connect to a broker.
func NewAMQPNotifier(pub Publisher, exchange, routingKey string) *AMQPNotifier {
	return &AMQPNotifier{pub: pub, exchange: exchange, routingKey: routingKey, now: time.Now}
}

// DialAMQP connects to the broker at url and declares a durable topic
// exchange when one is named.
func DialAMQP(url, exchange, routingKey string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}
	if exchange != "" {
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
		}
	}

	n := NewAMQPNotifier(ch, exchange, routingKey)
	n.conn, n.ch = conn, ch
	return n, nil
}

func (n *AMQPNotifier) Send(ctx context.Context, to, subject, html string) error {
	if model.SkipNotify(to) {
		return nil
	}

	env := Envelope{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		HTML:      html,
		CreatedAt: n.now().UTC(),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	err = n.pub.PublishWithContext(ctx, n.exchange, n.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publishing notification for %s: %w", to, err)
	}
	return nil
}

// Close closes the broker connection opened by DialAMQP.
func (n *AMQPNotifier) Close() error {
	if n.ch != nil {
		n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

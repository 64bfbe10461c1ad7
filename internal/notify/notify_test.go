package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type recorder struct {
	mu    sync.Mutex
	sent  []string
	err   error
	block chan struct{}
}

func (r *recorder) Send(ctx context.Context, to, subject, html string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, to)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	if err := n.Send(context.Background(), "owner@example.edu", "Match Found for Your Lost Item", "<p>hi</p>"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "to=owner@example.edu") {
		t.Errorf("expected recipient in log, got %q", buf.String())
	}

	buf.Reset()
	n.Send(context.Background(), "NONE", "s", "b")
	if buf.Len() != 0 {
		t.Errorf("expected nothing logged for none, got %q", buf.String())
	}
}

func TestSMTPNotifier(t *testing.T) {
	n := NewSMTPNotifier("mail.example.edu", 587, "desk", "secret", "lostandfound@example.edu")
	n.now = func() time.Time { return time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC) }

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	calls := 0
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := n.Send(context.Background(), "owner@example.edu", "Match Found for Your Lost Item", "<p>Wallet</p>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "mail.example.edu:587" || gotFrom != "lostandfound@example.edu" {
		t.Errorf("unexpected envelope %s %s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "owner@example.edu" {
		t.Errorf("unexpected recipients %v", gotTo)
	}
	msg := string(gotMsg)
	for _, want := range []string{
		"Subject: Match Found for Your Lost Item\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"\r\n\r\n<p>Wallet</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	n.Send(context.Background(), "none", "s", "b")
	n.Send(context.Background(), "", "s", "b")
	if calls != 1 {
		t.Errorf("expected sentinel addresses to be skipped, got %d sends", calls)
	}
}

func TestSMTPNotifierError(t *testing.T) {
	n := NewSMTPNotifier("mail.example.edu", 25, "", "", "desk@example.edu")
	if n.auth != nil {
		t.Error("expected no auth without a username")
	}
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay refused")
	}
	if err := n.Send(context.Background(), "owner@example.edu", "s", "b"); err == nil {
		t.Fatal("expected error")
	}
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return p.err
}

func TestAMQPNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := NewAMQPNotifier(pub, "najdeno", "notify.match")

	if err := n.Send(context.Background(), "owner@example.edu", "Match Found for Your Lost Item", "<p>x</p>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if pub.exchange != "najdeno" || pub.key != "notify.match" {
		t.Errorf("unexpected route %s/%s", pub.exchange, pub.key)
	}
	if pub.msg.ContentType != "application/json" || pub.msg.DeliveryMode != amqp.Persistent {
		t.Errorf("unexpected publishing %+v", pub.msg)
	}

	var env Envelope
	if err := json.Unmarshal(pub.msg.Body, &env); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if env.To != "owner@example.edu" || env.HTML != "<p>x</p>" {
		t.Errorf("unexpected envelope %+v", env)
	}
	if env.ID == "" || env.ID != pub.msg.MessageId {
		t.Errorf("expected message id %q to match envelope id %q", pub.msg.MessageId, env.ID)
	}

	pub.err = errors.New("channel closed")
	if err := n.Send(context.Background(), "owner@example.edu", "s", "b"); err == nil {
		t.Error("expected publish error")
	}
}

func TestDispatcherDelivers(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, 4, time.Second, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	for _, to := range []string{"a@example.edu", "none", "b@example.edu"} {
		if err := d.Send(context.Background(), to, "s", "b"); err != nil {
			t.Fatalf("Send(%s): %v", to, err)
		}
	}

	cancel()
	<-done

	if rec.count() != 2 {
		t.Errorf("expected 2 deliveries, got %d", rec.count())
	}
	if err := d.Send(context.Background(), "c@example.edu", "s", "b"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after shutdown, got %v", err)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, 1, time.Second, nil, nil)

	// No worker is running, so the second message has nowhere to go.
	if err := d.Send(context.Background(), "a@example.edu", "s", "b"); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := d.Send(context.Background(), "b@example.edu", "s", "b"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

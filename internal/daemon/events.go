package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docmake/internal/config"
	"git.home.luguber.info/inful/docmake/internal/logfields"
)

// EventType distinguishes the two events published per build.
type EventType string

const (
	EventBuildStarted  EventType = "started"
	EventBuildFinished EventType = "finished"
)

// Rebuild trigger reasons carried in BuildEvent.Reason.
const (
	TriggerStartup  = "startup"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
)

// BuildEvent is published when a daemon-triggered build starts and
// again when it finishes.
type BuildEvent struct {
	Type      EventType `json:"type"`
	BuildID   string    `json:"build_id,omitempty"`
	Mode      string    `json:"mode"`
	Outcome   string    `json:"outcome,omitempty"` // finished events only
	Reason    string    `json:"reason"`            // startup, watch, schedule
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes build events to a JetStream stream. A nil
// Publisher is a no-op, so event publishing stays optional.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to the configured NATS server and ensures the
// event stream exists. Events are published under <subject>.started and
// <subject>.finished.
func NewPublisher(cfg *config.NATSConfig) (*Publisher, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, nil
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("docmake"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "docmake.builds"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName(subject),
		Subjects: []string{subject + ".>"},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure event stream: %w", err)
	}

	slog.Info("Connected to NATS for build events",
		slog.String("url", cfg.URL), slog.String("subject", subject))
	return &Publisher{conn: conn, js: js, subject: subject}, nil
}

// streamName derives a stream name from the event subject.
func streamName(subject string) string {
	return strings.ToUpper(strings.ReplaceAll(subject, ".", "_"))
}

// Publish sends a build event. Failures degrade to a warning: event
// publishing never affects build outcomes.
func (p *Publisher) Publish(event BuildEvent) {
	if p == nil || p.js == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("Failed to marshal build event", logfields.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.js.Publish(ctx, p.subject+"."+string(event.Type), payload); err != nil {
		slog.Warn("Failed to publish build event", logfields.Error(err))
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

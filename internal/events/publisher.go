// Package events publishes build lifecycle events to NATS so other systems
// (notifiers, dashboards) can react to builds without polling the runner.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docrunner/internal/config"
	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/observability"
)

// BuildEvent is the wire payload for all build lifecycle events.
type BuildEvent struct {
	BuildID   string    `json:"build_id"`
	Project   string    `json:"project"`
	Ref       string    `json:"ref,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits build lifecycle events. Publishing is best effort: a
// failing event bus must never fail a build, so methods do not return errors.
type Publisher interface {
	BuildStarted(ctx context.Context, ev BuildEvent)
	StageCompleted(ctx context.Context, ev BuildEvent)
	BuildFinished(ctx context.Context, ev BuildEvent)
	Close()
}

// NopPublisher is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) BuildStarted(context.Context, BuildEvent)   {}
func (NopPublisher) StageCompleted(context.Context, BuildEvent) {}
func (NopPublisher) BuildFinished(context.Context, BuildEvent)  {}
func (NopPublisher) Close()                                     {}

// NATSPublisher publishes events over NATS JetStream.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	prefix  string
	timeout time.Duration
}

// NewPublisher creates a publisher from the events config, returning the
// NopPublisher when events are disabled.
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}
	return NewNATSPublisher(cfg.URL, cfg.SubjectPrefix)
}

// NewNATSPublisher connects to NATS and prepares the JetStream context.
func NewNATSPublisher(url, subjectPrefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return &NATSPublisher{
		conn:    conn,
		js:      js,
		prefix:  subjectPrefix,
		timeout: 5 * time.Second,
	}, nil
}

func (p *NATSPublisher) BuildStarted(ctx context.Context, ev BuildEvent) {
	p.publish(ctx, "started", ev)
}

func (p *NATSPublisher) StageCompleted(ctx context.Context, ev BuildEvent) {
	p.publish(ctx, "stage", ev)
}

func (p *NATSPublisher) BuildFinished(ctx context.Context, ev BuildEvent) {
	p.publish(ctx, "finished", ev)
}

func (p *NATSPublisher) publish(ctx context.Context, kind string, ev BuildEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		observability.WarnContext(ctx, "Failed to marshal build event", logfields.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.builds.%s", p.prefix, kind)
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := p.js.Publish(pubCtx, subject, data); err != nil {
		observability.WarnContext(ctx, "Failed to publish build event",
			logfields.Error(err), logfields.BuildID(ev.BuildID))
	}
}

// Close drains the underlying connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

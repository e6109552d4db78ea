// Package nats mirrors report lifecycle events onto a JetStream stream so
// that services outside this process can follow report runs.
package nats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dota-report-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName    = "REPORTS"
	SubjectPrefix = "reports"

	streamMaxAge     = 24 * time.Hour
	duplicatesWindow = 2 * time.Minute
	setupTimeout     = 5 * time.Second
)

type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewPublisher connects to url and makes sure the REPORTS stream exists.
// A publisher is only returned when the stream is usable.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("dota-report-be"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     streamMaxAge,
		Duplicates: duplicatesWindow,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Subject maps "report.completed" to "reports.completed". Event types
// outside the report family keep their full name under the prefix.
func Subject(eventType string) string {
	return SubjectPrefix + "." + strings.TrimPrefix(eventType, "report.")
}

// MessageID is used for JetStream de-duplication: a redelivered event for
// the same report and transition is stored once.
func MessageID(e events.Event) string {
	reportId, _ := e.Payload()["report_id"].(string)
	if reportId == "" {
		return ""
	}
	return reportId + ":" + e.EventType()
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := events.Encode(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	var opts []jetstream.PublishOpt
	if id := MessageID(event); id != "" {
		opts = append(opts, jetstream.WithMsgID(id))
	}

	subject := Subject(event.EventType())
	if _, err := p.js.Publish(ctx, subject, data, opts...); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains in-flight publishes before closing the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

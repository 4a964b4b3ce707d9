// Package kafka ships audit events to a Kafka topic so downstream consumers
// (SIEM, warehouse) get the trail without querying the service.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "communiserver/pkg/platform/audit"
)

const defaultTopic = "communiserver.audit"

// Publisher is a Kafka-backed audit sink. Events are keyed by actor so a
// single actor's trail stays ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*Publisher)

func WithTopic(topic string) Option {
	return func(p *Publisher) { p.topic = topic }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// NewPublisher connects to the given brokers and ensures the audit topic
// exists.
func NewPublisher(ctx context.Context, brokers []string, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		topic:  defaultTopic,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(p.topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p.client = client

	if err := p.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, 3, 1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %q: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Append produces the event as JSON. Delivery is asynchronous; produce
// errors are logged, not surfaced, since the trail is best-effort.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.ActorID.String()),
		Value: payload,
		Topic: p.topic,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("audit produce failed", "error", err, "action", event.Action)
		}
	})
	return nil
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush audit records: %w", err)
	}
	p.client.Close()
	return nil
}

var _ audit.Sink = (*Publisher)(nil)

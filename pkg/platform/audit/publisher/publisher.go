// Package publisher is the emission front for the audit trail. Handlers talk
// to a Publisher; it either writes through synchronously or buffers events
// for a background worker, depending on configuration. Extra sinks (Kafka)
// receive every event the store receives.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "communiserver/pkg/platform/audit"
	"communiserver/pkg/platform/audit/worker"
)

type Publisher struct {
	store  audit.Store
	extra  []audit.Sink
	logger *slog.Logger

	inbox chan audit.Event
	wg    sync.WaitGroup

	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// channel capacity. When the buffer is full, events are dropped with a log
// line rather than blocking the request path.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithSink adds a best-effort fan-out sink alongside the store.
func WithSink(s audit.Sink) Option {
	return func(p *Publisher) { p.extra = append(p.extra, s) }
}

// WithLogger sets the logger used for drop and persistence warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		w := worker.NewWorker(p.inbox, p.logger, p.sinks()...)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			_ = w.Run(context.Background())
		}()
	}
	return p
}

func (p *Publisher) sinks() []audit.Sink {
	return append([]audit.Sink{p.store}, p.extra...)
}

// Emit records an event. In async mode this never blocks; a full buffer
// drops the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		for _, sink := range p.sinks() {
			if err := sink.Append(ctx, event); err != nil {
				return err
			}
		}
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, actorID uuid.UUID) ([]audit.Event, error) {
	return p.store.ListByActor(ctx, actorID)
}

// Close stops the background worker after persisting everything already
// buffered.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

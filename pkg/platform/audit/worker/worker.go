package worker

import (
	"context"
	"log/slog"

	audit "communiserver/pkg/platform/audit"
)

// Worker consumes audit events from a channel and fans them out to every
// configured sink. A failing sink is logged and skipped; the trail is
// best-effort and must never take the read path down with it.
type Worker struct {
	sinks  []audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(inbox <-chan audit.Event, logger *slog.Logger, sinks ...audit.Sink) *Worker {
	return &Worker{sinks: sinks, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context ends or the inbox is closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			for _, sink := range w.sinks {
				if err := sink.Append(ctx, event); err != nil {
					w.logger.ErrorContext(ctx, "audit sink append failed",
						"error", err,
						"action", event.Action,
					)
				}
			}
		}
	}
}

package feed

import (
	"context"

	"camrent-backend/internal/logger"
)

// Watch emits a snapshot loaded by load immediately and again after every
// signal on topic. Only the latest unread snapshot is kept. The channel is
// closed and the subscription released once ctx is done.
func Watch[T any](ctx context.Context, h *Hub, topic string, load func(context.Context) (T, error)) <-chan T {
	signals, cancel := h.Subscribe(topic)
	out := make(chan T, 1)

	go func() {
		defer close(out)
		defer cancel()

		emit := func() {
			snap, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("Failed to load snapshot", "topic", topic, "error", err)
				}
				return
			}
			select {
			case <-out:
			default:
			}
			out <- snap
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				emit()
			}
		}
	}()
	return out
}

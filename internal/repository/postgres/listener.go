package postgres

import (
	"context"
	"fmt"
	"time"

	"camrent-backend/internal/logger"
	"camrent-backend/internal/repository"

	"github.com/lib/pq"
)

// ChangeListener forwards NOTIFY payloads from the change triggers to a
// publisher, typically a feed.Hub.
type ChangeListener struct {
	dsn          string
	pub          repository.ChangePublisher
	minReconnect time.Duration
	maxReconnect time.Duration
	pingInterval time.Duration
}

func NewChangeListener(dsn string, pub repository.ChangePublisher) *ChangeListener {
	return &ChangeListener{
		dsn:          dsn,
		pub:          pub,
		minReconnect: 10 * time.Second,
		maxReconnect: time.Minute,
		pingInterval: 90 * time.Second,
	}
}

// Run listens until ctx is cancelled.
func (l *ChangeListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, l.minReconnect, l.maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("Change listener connection event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChangeChannel); err != nil {
		return fmt.Errorf("listen on %s: %w", ChangeChannel, err)
	}
	logger.Info("Listening for store changes", "channel", ChangeChannel)

	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			l.dispatch(n)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					logger.Warn("Change listener ping failed", "error", err)
				}
			}()
		}
	}
}

// dispatch publishes the topic named by the payload. A nil notification
// means the connection was re-established and events may have been lost,
// so every topic is signalled.
func (l *ChangeListener) dispatch(n *pq.Notification) {
	if n == nil {
		l.pub.Publish(repository.TopicResources)
		l.pub.Publish(repository.TopicReservations)
		return
	}
	switch n.Extra {
	case repository.TopicResources, repository.TopicReservations:
		l.pub.Publish(n.Extra)
	default:
		logger.Warn("Ignoring unknown change payload", "channel", n.Channel, "payload", n.Extra)
	}
}
